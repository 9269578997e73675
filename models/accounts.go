package models

// Fixed chart-of-accounts codes for the cattle depreciation ledger.
// These are policy constants, not user-editable rows.
const (
	AccountCodeCattleAsset             = "1510"
	AccountCodeCash                    = "1000"
	AccountCodeAccumulatedDepreciation = "1515"
	AccountCodeOwnerInvestment         = "3010"
	AccountCodeGainOnSaleOfCattle      = "4910"
	AccountCodeDepreciationExpense     = "6100"
	AccountCodeLossOnSaleOfCattle      = "6910"
	AccountCodeLossOnDeadCattle        = "6920"
)

var accountNames = map[string]string{
	AccountCodeCattleAsset:             "Cattle",
	AccountCodeCash:                    "Cash",
	AccountCodeAccumulatedDepreciation: "Accumulated Depreciation - Cattle",
	AccountCodeOwnerInvestment:         "Owner Investment",
	AccountCodeGainOnSaleOfCattle:      "Gain on Sale of Cattle",
	AccountCodeDepreciationExpense:     "Depreciation Expense - Cattle",
	AccountCodeLossOnSaleOfCattle:      "Loss on Sale of Cattle",
	AccountCodeLossOnDeadCattle:        "Loss on Dead Cattle",
}

func AccountNameForCode(code string) string {
	if name, ok := accountNames[code]; ok {
		return name
	}
	return code
}
