// Package smsgen generates synthetic bank SMS exports for load and
// regression testing. Output is deterministic for a given seed.
package smsgen

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Label is what a generated message is expected to be classified as
type Label string

const (
	LabelTransaction Label = "transaction"
	LabelDuplicate   Label = "duplicate"
	LabelNoise       Label = "noise"
)

// Message is one generated SMS
type Message struct {
	Sender     string
	Body       string
	ReceivedAt time.Time
	Label      Label
}

// Config controls a generation run
type Config struct {
	Count int
	Start time.Time
	End   time.Time
	Seed  int64
	// DuplicateRate is the chance a transaction is delivered twice a few
	// seconds apart
	DuplicateRate float64
	// NoiseRate is the share of messages that are OTPs, offers or balance
	// alerts
	NoiseRate float64
	MinAmount int
	MaxAmount int
}

// DefaultConfig generates 1000 messages over May 2024
func DefaultConfig() *Config {
	ist := time.FixedZone("IST", 5*3600+1800)
	return &Config{
		Count:         1000,
		Start:         time.Date(2024, 5, 1, 0, 0, 0, 0, ist),
		End:           time.Date(2024, 6, 1, 0, 0, 0, 0, ist),
		Seed:          1,
		DuplicateRate: 0.05,
		NoiseRate:     0.3,
		MinAmount:     50,
		MaxAmount:     5000,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}
	if !c.Start.Before(c.End) {
		return fmt.Errorf("start date must be before end date")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicate rate must be between 0 and 1, got %v", c.DuplicateRate)
	}
	if c.NoiseRate < 0 || c.NoiseRate > 1 {
		return fmt.Errorf("noise rate must be between 0 and 1, got %v", c.NoiseRate)
	}
	if c.MinAmount < 1 || c.MaxAmount < c.MinAmount {
		return fmt.Errorf("amount range must satisfy 1 <= min <= max, got %d..%d", c.MinAmount, c.MaxAmount)
	}
	return nil
}

type bank struct {
	name   string
	sender string
}

var banks = []bank{
	{"HDFC Bank", "VM-HDFCBK"},
	{"ICICI Bank", "VM-ICICIB"},
	{"SBI", "VM-SBIINB"},
	{"Axis Bank", "AX-AXISBK"},
}

var merchants = []string{"Amazon", "Swiggy", "Zomato", "Flipkart", "Local Grocer", "Uber"}

// transaction templates take bank, amount, account, date, merchant and a
// reference number, in that order, through explicit argument indexes
var transactionTemplates = []string{
	"%[1]s: Rs.%[2]d debited from A/c XX%[3]s on %[4]s to %[5]s Ref No IMPS%[6]d",
	"Rs.%[2]d paid to %[5]s via UPI. Ref %[6]d",
	"Rs.%[2]d debited from your A/c XX%[3]s for %[5]s order",
}

var creditTemplates = []string{
	"Rs.%[2]d credited to your A/c XX%[3]s by NEFT. UTR: %[6]d",
}

var noiseTemplates = []struct {
	sender string
	body   func(r *rand.Rand, at time.Time) string
}{
	{"VM-HDFCBK", func(r *rand.Rand, _ time.Time) string {
		return fmt.Sprintf("Your OTP for login is %06d. Do not share.", r.Intn(1000000))
	}},
	{"AD-SWIGGY", func(r *rand.Rand, _ time.Time) string {
		n := 10 + r.Intn(50)
		return fmt.Sprintf("Use code SAVE%d for %d%% off! Visit https://bit.ly/xyz T&C apply", n, n)
	}},
	{"VM-ICICIB", func(r *rand.Rand, at time.Time) string {
		return fmt.Sprintf("Avl Bal in A/c XX%04d as on %s is Rs.%d.%02d", r.Intn(10000), at.Format("02-Jan"), 1000+r.Intn(90000), r.Intn(100))
	}},
}

// Generator produces messages from a Config
type Generator struct {
	config *Config
	rng    *rand.Rand
}

// New creates a generator. A nil config uses DefaultConfig.
func New(config *Config) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Generator{config: config, rng: rand.New(rand.NewSource(config.Seed))}
}

// Generate returns Count messages ordered by receipt time
func (g *Generator) Generate() []Message {
	msgs := make([]Message, 0, g.config.Count)
	for len(msgs) < g.config.Count {
		at := g.randomTime()

		if g.rng.Float64() < g.config.NoiseRate {
			msgs = append(msgs, g.noise(at))
			continue
		}

		msg := g.transaction(at)
		msgs = append(msgs, msg)
		if len(msgs) < g.config.Count && g.rng.Float64() < g.config.DuplicateRate {
			dup := msg
			dup.ReceivedAt = at.Add(time.Duration(1+g.rng.Intn(10)) * time.Second)
			dup.Label = LabelDuplicate
			msgs = append(msgs, dup)
		}
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt) })
	return msgs
}

func (g *Generator) transaction(at time.Time) Message {
	b := banks[g.rng.Intn(len(banks))]
	templates := transactionTemplates
	if g.rng.Intn(5) == 0 {
		templates = creditTemplates
	}
	tmpl := templates[g.rng.Intn(len(templates))]

	amount := g.config.MinAmount + g.rng.Intn(g.config.MaxAmount-g.config.MinAmount+1)
	account := fmt.Sprintf("%04d", g.rng.Intn(10000))
	merchant := merchants[g.rng.Intn(len(merchants))]
	ref := 400000000000 + g.rng.Int63n(100000000000)

	return Message{
		Sender:     b.sender,
		Body:       fmt.Sprintf(tmpl, b.name, amount, account, at.Format("02/01/06"), merchant, ref),
		ReceivedAt: at,
		Label:      LabelTransaction,
	}
}

func (g *Generator) noise(at time.Time) Message {
	n := noiseTemplates[g.rng.Intn(len(noiseTemplates))]
	return Message{Sender: n.sender, Body: n.body(g.rng, at), ReceivedAt: at, Label: LabelNoise}
}

// randomTime picks a second inside [Start, End)
func (g *Generator) randomTime() time.Time {
	span := g.config.End.Sub(g.config.Start)
	return g.config.Start.Add(time.Duration(g.rng.Int63n(int64(span/time.Second))) * time.Second)
}
