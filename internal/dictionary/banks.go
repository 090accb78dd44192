package dictionary

import "sms-expense-tracker/internal/models"

// bankAliases lists DLT sender fragments and body spellings per bank. Matching
// is a case-insensitive substring test, so aliases are kept specific enough
// not to fire inside ordinary words.
func bankAliases() []BankAliases {
	return []BankAliases{
		{models.BankHDFC, []string{"hdfcbk", "hdfc bank", "hdfc"}},
		{models.BankICICI, []string{"icicib", "icici bank", "icici"}},
		{models.BankSBI, []string{"sbiinb", "sbipsg", "sbiupi", "state bank", "sbi"}},
		{models.BankAxis, []string{"axisbk", "axis bank", "axis"}},
		{models.BankKotak, []string{"kotakb", "kotak mahindra", "kotak"}},
		{models.BankPNB, []string{"pnbsms", "punjab national", "pnb"}},
		{models.BankBOB, []string{"bobtxn", "bobsms", "bank of baroda"}},
		{models.BankCanara, []string{"canbnk", "canara"}},
		{models.BankUnion, []string{"unionb", "union bank"}},
		{models.BankIDFC, []string{"idfcfb", "idfc first", "idfc"}},
		{models.BankYes, []string{"yesbnk", "yes bank"}},
		{models.BankIndusInd, []string{"indusb", "indusind"}},
		{models.BankFederal, []string{"fedbnk", "federal bank"}},
		{models.BankPaytm, []string{"paytmb", "pytmbn", "paytm payments bank", "paytm"}},
		{models.BankAmex, []string{"amexin", "american express", "amex"}},
		{models.BankCiti, []string{"citibk", "citibank"}},
		{models.BankHSBC, []string{"hsbcin", "hsbc"}},
		{models.BankSC, []string{"scbank", "stanchart", "standard chartered"}},
	}
}
