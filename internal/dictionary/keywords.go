package dictionary

import (
	"regexp"
	"strings"

	"sms-expense-tracker/internal/models"
)

var (
	billHeuristic    = regexp.MustCompile(`(?i)\bbill\s*pay(?:ment)?\b|\bbillpay\b|\brecharge[d]?\b|\bbill\b`)
	recurringPattern = regexp.MustCompile(`(?i)\b(?:emi|subscription|auto\s*pay|auto[\s-]debit|standing\s+instruction|e?-?mandate|nach|ecs|recurring|renewal|renewed)\b`)
)

// words compiles a case-insensitive, word-bounded alternation.
func words(terms ...string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func strongDebit() []NamedPattern {
	return []NamedPattern{
		{"debited_from", regexp.MustCompile(`(?i)\bdebited\s+(?:from|to)\s+(?:your\s+)?(?:a/c|ac|acct|account|card|bank|wallet)`)},
		{"debited_by", regexp.MustCompile(`(?i)\b(?:a/c|ac|acct|account|card)\b[^.]{0,40}?\bdebited\b`)},
		{"withdrawn_from", regexp.MustCompile(`(?i)\bwithdrawn\s+from\b`)},
		{"spent_on", regexp.MustCompile(`(?i)\bspent\s+(?:on|using|via|at)\b`)},
		{"paid_from", regexp.MustCompile(`(?i)\b(?:paid|sent|transferred)\s+from\b`)},
		{"deducted_from", regexp.MustCompile(`(?i)\b(?:deducted|charged)\s+(?:from|to|on)\b`)},
	}
}

func strongCredit() []NamedPattern {
	return []NamedPattern{
		{"credited_to", regexp.MustCompile(`(?i)\bcredited\s+(?:to|in|into)\s+(?:your\s+)?(?:a/c|ac|acct|account|card|bank|wallet)`)},
		{"credited_by", regexp.MustCompile(`(?i)\b(?:a/c|ac|acct|account)\b[^.]{0,40}?\bcredited\b`)},
		{"received_in", regexp.MustCompile(`(?i)\b(?:received|deposited)\s+(?:in|into|to)\b`)},
		{"received_from", regexp.MustCompile(`(?i)\breceived\s+from\b`)},
		{"refunded_to", regexp.MustCompile(`(?i)\brefund(?:ed)?\s+(?:to|of|for)\b`)},
		{"payment_received", regexp.MustCompile(`(?i)\bpayment\s+of\b.{0,40}?\breceived\b`)},
	}
}

func bareDebit() []NamedPattern {
	return []NamedPattern{
		{"debited", words("debited")},
		{"spent", words("spent", "purchase", "purchased")},
		{"paid", words("paid", "payment of", "sent", "transferred")},
		{"withdrawn", words("withdrawn", "withdrawal")},
		{"deducted", words("deducted", "charged")},
		{"dr", words("dr")},
	}
}

func bareCredit() []NamedPattern {
	return []NamedPattern{
		{"credited", words("credited")},
		{"received", words("received", "deposited")},
		{"refund", words("refund", "refunded", "reversed", "reversal")},
		{"cashback", words("cashback")},
		{"salary", words("salary")},
		{"cr", words("cr")},
	}
}

func methodRules() []MethodRule {
	return []MethodRule{
		{models.MethodUPI, regexp.MustCompile(`(?i)\bupi\b|\bvpa\b`)},
		{models.MethodIMPS, regexp.MustCompile(`(?i)\bimps`)},
		{models.MethodNEFT, regexp.MustCompile(`(?i)\bneft`)},
		{models.MethodRTGS, regexp.MustCompile(`(?i)\brtgs`)},
		{models.MethodATM, regexp.MustCompile(`(?i)\batm\b|\bcash\s+withdrawal\b`)},
		{models.MethodNetBanking, regexp.MustCompile(`(?i)\bnet\s*banking\b|\binternet\s+banking\b|\bonline\s+banking\b`)},
		{models.MethodCheque, regexp.MustCompile(`(?i)\bcheque\b|\bchq\b|\bcheq\b`)},
		{models.MethodCard, regexp.MustCompile(`(?i)\b(?:debit|credit)\s+card\b|\bcard\b|\bpos\b|\bswiped\b`)},
		{models.MethodCash, regexp.MustCompile(`(?i)\bcash\b`)},
	}
}

// referencePatterns capture alphanumeric tokens that carry at least one digit.
func referencePatterns() []NamedPattern {
	const token = `([A-Za-z0-9]*[0-9][A-Za-z0-9]*)`
	const sep = `\s*(?:no\.?|number|num|#)?\s*[:.\-]?\s*`
	return []NamedPattern{
		{"utr", regexp.MustCompile(`(?i)\butr` + sep + token)},
		{"rrn", regexp.MustCompile(`(?i)\brrn` + sep + token)},
		{"ref", regexp.MustCompile(`(?i)\b(?:ref(?:erence)?\.?|txn|transaction)\s*(?:id|no\.?|number|#)?\s*[:.\-]?\s*` + token)},
		{"rail", regexp.MustCompile(`(?i)\b(?:imps|neft|rtgs)[:/\-\s]*(\d{6,})`)},
	}
}

func categoryRules() []CategoryRule {
	return []CategoryRule{
		{models.CategoryFood, words(
			"swiggy", "zomato", "restaurant", "restaurants", "cafe", "food", "foods", "pizza", "dominos",
			"mcdonalds", "kfc", "starbucks", "dunzo", "bigbasket", "grocery", "groceries", "grocer",
			"blinkit", "zepto", "bakery", "dining", "eatery", "canteen", "dhaba",
		)},
		{models.CategoryShopping, words(
			"amazon", "flipkart", "myntra", "ajio", "meesho", "nykaa", "shopping", "store", "stores",
			"mart", "mall", "retail", "dmart", "croma", "reliance digital", "tata cliq", "lifestyle",
			"decathlon", "ikea",
		)},
		{models.CategoryBills, words(
			"electricity", "bill", "bills", "recharge", "broadband", "dth", "gas", "water", "insurance",
			"premium", "airtel", "jio", "vodafone", "bsnl", "postpaid", "prepaid", "rent", "maintenance",
			"bescom", "tata power", "lic",
		)},
		{models.CategoryEntertainment, words(
			"netflix", "hotstar", "prime video", "spotify", "bookmyshow", "movie", "movies", "cinema",
			"pvr", "inox", "gaming", "youtube", "zee5", "sonyliv",
		)},
		{models.CategoryTransport, words(
			"uber", "ola", "rapido", "irctc", "metro", "fuel", "petrol", "diesel", "fastag", "parking",
			"redbus", "indigo", "air india", "flight", "cab", "taxi", "toll", "railway",
		)},
		{models.CategoryHealth, words(
			"pharmacy", "apollo", "medplus", "hospital", "clinic", "doctor", "medical", "medicals", "1mg",
			"pharmeasy", "netmeds", "diagnostic", "diagnostics", "lab", "labs", "chemist",
		)},
		{models.CategoryEducation, words(
			"school", "college", "university", "tuition", "course", "udemy", "coursera", "byjus",
			"unacademy", "books", "fees", "exam", "academy",
		)},
	}
}

func descriptionLabels() []NamedPattern {
	return []NamedPattern{
		{"Refund", words("refund", "refunded", "reversal", "reversed")},
		{"Cashback", words("cashback")},
		{"Salary", words("salary", "sal")},
		{"EMI Payment", words("emi")},
	}
}
