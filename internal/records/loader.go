package records

import (
	"fmt"
	"os"
	"strings"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"

	"lookupd/internal/log"
)

// Load reads a record table from a file on disk. The file holds a sequence of records, as either a
// JSON array or its YAML equivalent.
func Load(path string, logger log.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("records: error reading record table: path=%s err=%v", path, err)
	}

	return Parse(data, logger)
}

// Parse decodes a record table. Records missing a type, name, or value are dropped with a warning.
// Records that are kept but look unusual to a DNS resolver (unknown type, invalid domain name) are
// only reported.
func Parse(data []byte, logger log.Logger) (*Store, error) {
	var raw []Record
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("records: error parsing record table: err=%v", err)
	}

	var table []Record
	for idx, record := range raw {
		if record.Type == "" || record.Name == "" || record.Value == "" {
			logger.Warn(
				"records: dropping incomplete record: idx=%d type=%q name=%q value=%q",
				idx,
				record.Type,
				record.Name,
				record.Value,
			)
			continue
		}

		if _, ok := dns.StringToType[strings.ToUpper(record.Type)]; !ok {
			logger.Warn("records: unrecognized record type: idx=%d type=%s", idx, record.Type)
		}

		if _, ok := dns.IsDomainName(record.Name); !ok {
			logger.Warn("records: record name is not a valid domain name: idx=%d name=%s", idx, record.Name)
		}

		table = append(table, record)
	}

	logger.Info("records: loaded record table: records=%d dropped=%d", len(table), len(raw)-len(table))

	return NewStore(table), nil
}
