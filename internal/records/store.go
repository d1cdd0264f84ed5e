// Package records holds the static table of resolvable records. The table is loaded once at
// startup and never mutated afterwards.
package records

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Record is a static (type, name) to value mapping.
type Record struct {
	Type     string `yaml:"Type"`
	Name     string `yaml:"Name"`
	Value    string `yaml:"Value"`
	TTL      int    `yaml:"TTL"`
	Priority *int   `yaml:"Priority"`
}

// Store is an immutable, in-memory record table.
type Store struct {
	records []Record
}

// NewStore creates a store over a copy of the supplied records. Order is preserved; it decides
// which record wins when duplicates exist.
func NewStore(records []Record) *Store {
	table := make([]Record, len(records))
	for idx, record := range records {
		table[idx] = record.clone()
	}

	return &Store{records: table}
}

// Resolve looks up the record whose type and name both match, ignoring case. The first match in
// table order is returned.
func (s *Store) Resolve(recordType string, name string) (Record, bool) {
	for _, record := range s.records {
		if strings.EqualFold(record.Type, recordType) && strings.EqualFold(record.Name, name) {
			return record.clone(), true
		}
	}

	return Record{}, false
}

// clone copies the record, including the priority it points to.
func (r Record) clone() Record {
	if r.Priority != nil {
		priority := *r.Priority
		r.Priority = &priority
	}

	return r
}

// Len reports the number of records in the table.
func (s *Store) Len() int {
	return len(s.records)
}

// RR renders the record as a DNS resource record, e.g. for zone-file style display. It fails for
// record types that have no textual representation known to the DNS library.
func (r Record) RR() (dns.RR, error) {
	value := r.Value
	if r.Priority != nil {
		value = fmt.Sprintf("%d %s", *r.Priority, r.Value)
	}

	rr, err := dns.NewRR(fmt.Sprintf(
		"%s %d IN %s %s",
		dns.Fqdn(r.Name),
		r.TTL,
		strings.ToUpper(r.Type),
		value,
	))
	if err != nil {
		return nil, fmt.Errorf("records: error rendering record: name=%s type=%s err=%v", r.Name, r.Type, err)
	}

	return rr, nil
}

// String implements the Stringer interface for human-consumable representation.
func (r Record) String() string {
	if r.Priority != nil {
		return fmt.Sprintf("Record{%s %s -> %s ttl=%d priority=%d}", r.Type, r.Name, r.Value, r.TTL, *r.Priority)
	}

	return fmt.Sprintf("Record{%s %s -> %s ttl=%d}", r.Type, r.Name, r.Value, r.TTL)
}
