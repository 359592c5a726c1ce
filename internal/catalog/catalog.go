package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"tokenrelay/pkg/logging"
)

// Credentials is the credentials block of a bound service.
type Credentials struct {
	ClientID     string `json:"clientid"`
	ClientSecret string `json:"clientsecret"`

	// URL is the OAuth2 server base URL; /oauth/token is appended to it.
	URL string `json:"url"`

	// URI is the service's own API origin (the lookup origin for the destination service).
	URI string `json:"uri"`

	// Endpoints maps endpoint names to origins.
	Endpoints map[string]string `json:"endpoints,omitempty"`

	// CloudService identifies the bound service for service routes.
	CloudService string `json:"sap.cloud.service,omitempty"`

	// UAA holds the OAuth2 credentials when the service nests them.
	UAA *Credentials `json:"uaa,omitempty"`
}

// OAuth returns the credentials to use against the token endpoint: the nested
// uaa block when present, the credentials themselves otherwise.
func (c Credentials) OAuth() Credentials {
	if c.UAA != nil {
		return *c.UAA
	}
	return c
}

// Record is one bound service instance.
type Record struct {
	Label       string      `json:"label"`
	Name        string      `json:"name"`
	Credentials Credentials `json:"credentials"`
}

// Catalog is the set of bound service instances.
type Catalog struct {
	records []Record
}

// Options locates the catalog.
type Options struct {
	// Variable is the environment variable holding the catalog JSON.
	Variable string
	// EnvFile is loaded with godotenv first when set. Variables already
	// present in the environment are not overridden.
	EnvFile string
}

// Load reads the catalog from the environment. An unset variable yields an
// empty catalog; malformed JSON is an error.
func Load(opts Options) (*Catalog, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logging.Warn("Catalog", "Env file %s not found, using process environment only", opts.EnvFile)
			} else {
				return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
			}
		}
	}

	raw, ok := os.LookupEnv(opts.Variable)
	if !ok || raw == "" {
		logging.Warn("Catalog", "%s is not set, service catalog is empty", opts.Variable)
		return New(nil), nil
	}

	c, err := Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", opts.Variable, err)
	}

	logging.Info("Catalog", "Loaded %d bound services from %s", len(c.records), opts.Variable)
	return c, nil
}

// Parse decodes a catalog document: an object mapping service labels to
// lists of service instances. Instances are ordered by label, then by their
// position in the list.
func Parse(data []byte) (*Catalog, error) {
	var byLabel map[string][]Record
	if err := json.Unmarshal(data, &byLabel); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var records []Record
	for _, label := range labels {
		for _, r := range byLabel[label] {
			if r.Label == "" {
				r.Label = label
			}
			records = append(records, r)
		}
	}
	return New(records), nil
}

// New builds a catalog from records, mainly for tests and embedding.
func New(records []Record) *Catalog {
	return &Catalog{records: records}
}

// Find returns the first record matching the predicate.
func (c *Catalog) Find(match func(Record) bool) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	for _, r := range c.records {
		if match(r) {
			return r, true
		}
	}
	return Record{}, false
}

// Len returns the number of bound services.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// ByCloudService matches the service bound under the given service name.
func ByCloudService(name string) func(Record) bool {
	return func(r Record) bool {
		return r.Credentials.CloudService == name
	}
}

// ByLabel matches services of the given type, e.g. "destination".
func ByLabel(label string) func(Record) bool {
	return func(r Record) bool {
		return r.Label == label
	}
}
