package anonymize

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const Name = "anonymize"

var (
	ErrInvalidEmail = errors.New("not a valid email")
	ErrNullEntries  = errors.New("number of generated entries must be non-null")
	ErrNoEntries    = errors.New("number of generated entries must be > 0")
)

const emailAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	firstNames = []string{
		"John", "Mary", "David", "Sarah",
		"Daniel", "Laura", "Michael", "Emily",
		"James", "Emma", "William", "Ava",
		"Joseph", "Olivia", "Andrew", "Sophia",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Jones", "Brown", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
		"Gonzalez", "Perez", "Taylor", "Anderson",
	}
)

type Config struct {
	// Seed feeds the generators used by anonymize_email and generate_data
	// when a query does not pass its own. Zero means the current time.
	Seed int64
}

func (conf Config) WithDefaults() Config {
	if conf.Seed == 0 {
		conf.Seed = time.Now().UnixNano()
	}

	return conf
}

// Extension provides the anonymize, anonymize_email and generate_data
// functions. It can be loaded into DuckDB and ClickHouse engines.
type Extension struct {
	conf Config
}

func New(conf Config) *Extension {
	return &Extension{conf: conf.WithDefaults()}
}

func (ext *Extension) Name() string {
	return Name
}

func (ext *Extension) Seed() int64 {
	return ext.conf.Seed
}

func Anonymize(name string) string {
	return "Anonymize " + name + " 🐥"
}

// AnonymizeEmail is AnonymizeEmailSeed with the extension seed.
func (ext *Extension) AnonymizeEmail(email string) (string, error) {
	return AnonymizeEmailSeed(email, ext.conf.Seed)
}

// AnonymizeEmailSeed replaces every byte before the @ with a lowercase
// letter or digit. The output only depends on email and seed.
func AnonymizeEmailSeed(email string, seed int64) (string, error) {
	var at = strings.IndexByte(email, '@')

	if at < 0 {
		return "", ErrInvalidEmail
	}

	var (
		b   = []byte(email)
		rng = rand.New(rand.NewPCG(uint64(seed), xxhash.Sum64String(email)))
	)

	for i := 0; i < at; i++ {
		b[i] = emailAlphabet[rng.IntN(len(emailAlphabet))]
	}

	return string(b), nil
}

// NameGenerator produces "First Last" names from a seeded stream. It is not
// safe for concurrent use.
type NameGenerator struct {
	rng *rand.Rand
}

func NewNameGenerator(seed int64) *NameGenerator {
	return &NameGenerator{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)))}
}

func (gen *NameGenerator) Next() string {
	return firstNames[gen.rng.IntN(len(firstNames))] + " " + lastNames[gen.rng.IntN(len(lastNames))]
}
