package server

import (
	"strings"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/exclusion"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"

	"github.com/gofiber/fiber/v2"
)

type classifyRequest struct {
	Text       string    `json:"text"`
	Sender     string    `json:"sender,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
}

type signalView struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

type decisionView struct {
	Accepted bool         `json:"accepted"`
	Policy   string       `json:"policy"`
	Reason   string       `json:"reason"`
	Score    float64      `json:"score"`
	Signals  []signalView `json:"signals"`
}

type classifyResponse struct {
	Decision    decisionView        `json:"decision"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

type transactionRequest struct {
	Transaction *models.Transaction `json:"transaction"`
}

type fingerprintResponse struct {
	Fingerprint string `json:"fingerprint"`
}

type duplicateRequest struct {
	A *models.Transaction `json:"a"`
	B *models.Transaction `json:"b"`
}

type duplicateResponse struct {
	Score     int                 `json:"score"`
	Level     string              `json:"level"`
	Breakdown duplicate.Breakdown `json:"breakdown"`
}

type patternScoreRequest struct {
	Transaction *models.Transaction      `json:"transaction"`
	Pattern     *models.ExclusionPattern `json:"pattern"`
}

type patternScoreResponse struct {
	Score     int                 `json:"score"`
	Threshold int                 `json:"threshold"`
	Matches   bool                `json:"matches"`
	Breakdown exclusion.Breakdown `json:"breakdown"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.config.Version,
		"policy":  s.pipeline.Classifier().Policy().String(),
	})
}

func (s *Server) handleClassify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return errors.ValidationError(errors.CodeMissingField, "text", nil, nil)
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}

	tx, d := s.pipeline.ClassifyAndExtract(models.RawMessage{
		Text:       req.Text,
		Sender:     req.Sender,
		ReceivedAt: req.ReceivedAt,
	})
	s.metrics.observeDecision(d.Policy.Kind.String(), tx != nil)

	return c.JSON(classifyResponse{Decision: viewDecision(d), Transaction: tx})
}

func (s *Server) handleFingerprint(c *fiber.Ctx) error {
	var req transactionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireTransaction("transaction", req.Transaction); err != nil {
		return err
	}

	return c.JSON(fingerprintResponse{Fingerprint: s.pipeline.Fingerprint(req.Transaction)})
}

func (s *Server) handleDuplicateScore(c *fiber.Ctx) error {
	var req duplicateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireTransaction("a", req.A); err != nil {
		return err
	}
	if err := requireTransaction("b", req.B); err != nil {
		return err
	}

	d := s.pipeline.Duplicates()
	b := d.Breakdown(req.A, req.B)
	score := b.Total()
	s.metrics.observeScore("duplicate", score)

	return c.JSON(duplicateResponse{Score: score, Level: d.Level(score).String(), Breakdown: b})
}

func (s *Server) handleBuildPattern(c *fiber.Ctx) error {
	var req transactionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireTransaction("transaction", req.Transaction); err != nil {
		return err
	}

	pattern := s.pipeline.BuildPattern(req.Transaction)
	if err := pattern.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidPattern, "transaction", req.Transaction.String(), err).
			WithSuggestion("the transaction needs a merchant or description to learn a pattern from")
	}
	return c.Status(fiber.StatusCreated).JSON(pattern)
}

func (s *Server) handlePatternScore(c *fiber.Ctx) error {
	var req patternScoreRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireTransaction("transaction", req.Transaction); err != nil {
		return err
	}
	if req.Pattern == nil {
		return errors.ValidationError(errors.CodeMissingField, "pattern", nil, nil)
	}
	if err := req.Pattern.Normalize(); err != nil {
		return errors.ValidationError(errors.CodeInvalidPattern, "pattern", req.Pattern.String(), err)
	}
	if err := req.Pattern.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidPattern, "pattern", req.Pattern.String(), err)
	}

	m := s.pipeline.Matcher()
	b := m.Breakdown(req.Transaction, req.Pattern)
	score := b.Total()
	s.metrics.observeScore("exclusion", score)

	return c.JSON(patternScoreResponse{
		Score:     score,
		Threshold: m.Threshold(),
		Matches:   score >= m.Threshold(),
		Breakdown: b,
	})
}

func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return errors.New(errors.CategoryInput, errors.CodeEmptyInput, "request body is empty").
			WithSuggestion("send a JSON object with Content-Type: application/json")
	}
	if err := c.BodyParser(v); err != nil {
		return errors.Wrap(err, errors.CategoryParse, errors.CodeInvalidFormat, "request body is not valid JSON").
			WithSuggestion("send a JSON object with Content-Type: application/json")
	}
	return nil
}

// requireTransaction checks t and rewrites its kind, bank and category to
// their canonical spelling, so "dr" or "shopping" are accepted.
func requireTransaction(field string, t *models.Transaction) error {
	if t == nil {
		return errors.ValidationError(errors.CodeMissingField, field, nil, nil)
	}
	if t.Amount.IsNegative() {
		return errors.ValidationError(errors.CodeInvalidAmount, field+".amount", t.Amount.String(), nil)
	}
	if t.Kind != "" {
		kind, err := models.ParseTransactionKind(string(t.Kind))
		if err != nil {
			return errors.ValidationError(errors.CodeInvalidData, field+".kind", t.Kind, err)
		}
		t.Kind = kind
	}
	if t.Bank != "" {
		bank, err := models.ParseBankCode(string(t.Bank))
		if err != nil {
			return errors.ValidationError(errors.CodeInvalidData, field+".bank", t.Bank, err)
		}
		t.Bank = bank
	}
	if t.Category != "" {
		category, err := models.ParseCategory(string(t.Category))
		if err != nil {
			return errors.ValidationError(errors.CodeInvalidData, field+".category", t.Category, err)
		}
		t.Category = category
	}
	return nil
}

func viewDecision(d classify.Decision) decisionView {
	signals := make([]signalView, len(d.Signals))
	for i, sig := range d.Signals {
		signals[i] = signalView{Name: sig.Name, Weight: sig.Weight, Detail: sig.Detail}
	}
	return decisionView{
		Accepted: d.Accepted,
		Policy:   d.Policy.String(),
		Reason:   d.Reason,
		Score:    d.Score,
		Signals:  signals,
	}
}
