package dictionary

import "regexp"

// Signals are the textual cues the classifier weighs: negative signatures of
// OTP, promotional, balance and service texts, and positive cues of a
// completed transaction.
type Signals struct {
	URL                *regexp.Regexp
	OTP                *regexp.Regexp
	TermsAndConditions *regexp.Regexp

	// PromoTerms are counted per occurrence. A message is promotional once the
	// summed weights, with URLWeight added for a link, reach PromoThreshold.
	PromoTerms     []WeightedPattern
	URLWeight      int
	PromoThreshold int

	BalanceKeyword *regexp.Regexp
	Informational  []NamedPattern
	FutureTense    *regexp.Regexp

	TransactionVerb *regexp.Regexp
	StrongVerb      *regexp.Regexp
	AccountRef      *regexp.Regexp

	// StructuredLine matches one "label value" line of the multi-line alert
	// layout; MinStructuredLines of them mark the layout.
	StructuredLine     *regexp.Regexp
	MinStructuredLines int
}

func newSignals() Signals {
	return Signals{
		URL:                regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+|\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co|cutt\.ly|rb\.gy|i\.ibb\.co)/\S*`),
		OTP:                regexp.MustCompile(`(?i)\b(?:otp|one[\s-]time[\s-]password|verification\s+code|security\s+code)\b`),
		TermsAndConditions: regexp.MustCompile(`(?i)\bt\s*&\s*cs?\b|\bterms\s*(?:and|&)\s*conditions\b`),

		PromoTerms: []WeightedPattern{
			{"offer", 1, words("offer", "offers")},
			{"discount", 1, words("discount", "discounts", "flat", "upto")},
			{"percent_off", 1, regexp.MustCompile(`(?i)\d+\s*%\s*off\b`)},
			{"sale", 1, words("sale", "deal", "deals", "free")},
			{"win", 1, words("win", "won", "winner", "congratulations", "congrats", "lucky")},
			{"exclusive", 1, words("exclusive", "limited period", "limited time", "hurry")},
			{"voucher", 1, words("voucher", "vouchers", "coupon", "coupons", "code")},
			{"preapproved", 1, words("pre-approved", "preapproved", "eligible")},
			{"reward", 1, words("reward", "rewards")},
			{"call_to_action", 2, words(
				"click", "visit", "apply now", "call now", "download", "shop now", "avail",
				"claim", "book now", "register now", "know more", "use code", "install",
			)},
		},
		URLWeight:      3,
		PromoThreshold: 3,

		BalanceKeyword: regexp.MustCompile(`(?i)\bavl\.?\s*bal\b|\bavailable\s+(?:bal|balance|limit)\b|\bbalance\b|\bbal\b|\bledger\s+bal\b`),
		Informational: []NamedPattern{
			{"statement_ready", regexp.MustCompile(`(?i)\bstatement\b[^.]{0,60}?\b(?:generated|ready|available|sent|emailed)\b`)},
			{"due_reminder", regexp.MustCompile(`(?i)\b(?:payment\s+)?due\s+(?:date|on|by)\b|\b(?:minimum|total)\s+(?:amount\s+|amt\s+)?due\b|\bis\s+due\b|\bamt\s+due\b`)},
			{"card_lifecycle", regexp.MustCompile(`(?i)\bcard\b[^.]{0,40}?\b(?:activated|blocked|dispatched|delivered|issued|hotlisted|unblocked)\b`)},
			{"account_lifecycle", regexp.MustCompile(`(?i)\b(?:account|a/c)\b[^.]{0,40}?\b(?:opened|activated|closed|frozen|dormant)\b|\bkyc\b`)},
			{"reminder", words("reminder", "remind")},
			{"limit_change", regexp.MustCompile(`(?i)\blimit\b[^.]{0,30}?\b(?:increased|enhanced|revised|changed)\b`)},
			{"contact_update", regexp.MustCompile(`(?i)\b(?:mobile|email)\b[^.]{0,30}?\b(?:updated|registered|changed)\b`)},
		},
		FutureTense: regexp.MustCompile(`(?i)\bwill\s+be\b|\bshall\s+be\b|\bwill\s+get\b|\bscheduled\s+(?:for|on)\b|\bis\s+scheduled\b|\bupcoming\b|\bgoing\s+to\s+be\b`),

		TransactionVerb: words(
			"debited", "credited", "paid", "spent", "withdrawn", "received", "transferred",
			"sent", "deposited", "purchased", "refunded", "deducted", "charged",
		),
		StrongVerb: regexp.MustCompile(`(?i)\b(?:debited|credited|withdrawn|deducted|deposited|transferred|sent|paid)\s+(?:from|to|in|into)\s+(?:your\s+)?(?:a/c|ac|acct|account|card|bank|wallet)\b` +
			`|\b(?:a/c|ac|acct|account|card)\s*(?:no\.?\s*)?[x*]*\d{2,6}\s+(?:is\s+|has\s+been\s+)?(?:debited|credited)\b` +
			`|\bspent\s+(?:on|using|via)\s+(?:your\s+)?(?:[a-z]+\s+)?card\b`),
		AccountRef: regexp.MustCompile(`(?i)\b(?:a/c|ac|acct|account|card)\s*(?:no\.?|number)?\s*(?:ending\s+(?:with\s+|in\s+)?)?[:\-]?\s*(?:[x*]+\d{2,6}|\d{4,})\b|\b[x]{2,}\d{3,6}\b`),

		StructuredLine:     regexp.MustCompile(`(?i)^\s*(?:sent|received|paid|spent|from|to|on|at|ref(?:erence)?|amt|amount|date|a/c|acct|txn|info|upi|avl\s*bal|bal)\b`),
		MinStructuredLines: 3,
	}
}
