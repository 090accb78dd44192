package models

import (
	"fmt"
	"strings"
)

// BankCode identifies the issuing bank of a message.
type BankCode string

const (
	BankHDFC     BankCode = "HDFC"
	BankSBI      BankCode = "SBI"
	BankICICI    BankCode = "ICICI"
	BankAxis     BankCode = "AXIS"
	BankKotak    BankCode = "KOTAK"
	BankPNB      BankCode = "PNB"
	BankBOB      BankCode = "BOB"
	BankCanara   BankCode = "CANARA"
	BankUnion    BankCode = "UNION"
	BankIDFC     BankCode = "IDFC"
	BankYes      BankCode = "YES"
	BankIndusInd BankCode = "INDUSIND"
	BankFederal  BankCode = "FEDERAL"
	BankPaytm    BankCode = "PAYTM"
	BankAmex     BankCode = "AMEX"
	BankCiti     BankCode = "CITI"
	BankHSBC     BankCode = "HSBC"
	BankSC       BankCode = "SC"
	BankOther    BankCode = "OTHER"
)

// AllBanks lists every known bank code, OTHER last.
var AllBanks = []BankCode{
	BankHDFC, BankSBI, BankICICI, BankAxis, BankKotak, BankPNB, BankBOB, BankCanara,
	BankUnion, BankIDFC, BankYes, BankIndusInd, BankFederal, BankPaytm, BankAmex,
	BankCiti, BankHSBC, BankSC, BankOther,
}

// String returns the string representation of BankCode
func (b BankCode) String() string {
	return string(b)
}

// IsValid checks if the bank code is one of the known codes
func (b BankCode) IsValid() bool {
	for _, known := range AllBanks {
		if b == known {
			return true
		}
	}
	return false
}

// ParseBankCode resolves a stored or user supplied bank code.
func ParseBankCode(s string) (BankCode, error) {
	code := BankCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.IsValid() {
		return "", fmt.Errorf("unknown bank code '%s'", s)
	}
	return code, nil
}

// TransactionMethod is the payment rail a transaction moved over.
type TransactionMethod string

const (
	MethodUPI        TransactionMethod = "UPI"
	MethodCard       TransactionMethod = "Card"
	MethodNetBanking TransactionMethod = "NetBanking"
	MethodIMPS       TransactionMethod = "IMPS"
	MethodNEFT       TransactionMethod = "NEFT"
	MethodRTGS       TransactionMethod = "RTGS"
	MethodATM        TransactionMethod = "ATM"
	MethodCash       TransactionMethod = "Cash"
	MethodCheque     TransactionMethod = "Cheque"
	// MethodGeneric is used when no rail keyword is present.
	MethodGeneric TransactionMethod = "Transaction"
)

// AllMethods lists every transaction method, the generic fallback last.
var AllMethods = []TransactionMethod{
	MethodUPI, MethodCard, MethodNetBanking, MethodIMPS, MethodNEFT,
	MethodRTGS, MethodATM, MethodCash, MethodCheque, MethodGeneric,
}

// String returns the string representation of TransactionMethod
func (m TransactionMethod) String() string {
	return string(m)
}

// IsValid checks if the method is one of the known methods
func (m TransactionMethod) IsValid() bool {
	for _, known := range AllMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Category is the spending bucket a transaction is filed under.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryTransport     Category = "Transport"
	CategoryHealth        Category = "Health"
	CategoryEducation     Category = "Education"
	CategoryOthers        Category = "Others"
)

// DefaultCategory is used when neither a keyword nor a method heuristic applies.
const DefaultCategory = CategoryOthers

// AllCategories lists every category, the default last.
var AllCategories = []Category{
	CategoryFood, CategoryShopping, CategoryBills, CategoryEntertainment,
	CategoryTransport, CategoryHealth, CategoryEducation, CategoryOthers,
}

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is known. The empty category is accepted
// because exclusion patterns may carry none.
func (c Category) IsValid() bool {
	if c == "" {
		return true
	}
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, known := range AllCategories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown category '%s'", s)
}
