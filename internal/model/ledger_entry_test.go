package model

import "testing"

func TestLedgerEntryInputValidate(t *testing.T) {
	valid := LedgerEntryInput{UserID: 1, Amount: 10, Category: "general"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name string
		in   LedgerEntryInput
	}{
		{"missing user", LedgerEntryInput{Amount: 10, Category: "general"}},
		{"zero amount", LedgerEntryInput{UserID: 1, Category: "general"}},
		{"blank category", LedgerEntryInput{UserID: 1, Amount: 10, Category: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.in.Validate(); err == nil {
				t.Fatalf("Validate(%+v) = nil, want error", tc.in)
			}
		})
	}

	debit := LedgerEntryInput{UserID: 1, Amount: -25, Category: "merchandise"}
	if err := debit.Validate(); err != nil {
		t.Fatalf("negative amounts are valid ledger entries: %v", err)
	}
}

func TestValidRewardCategory(t *testing.T) {
	for _, c := range []string{RewardMerchandise, RewardDigital, RewardExperiences} {
		if !ValidRewardCategory(c) {
			t.Errorf("ValidRewardCategory(%q) = false", c)
		}
	}
	for _, c := range []string{"", "Merchandise", "swag"} {
		if ValidRewardCategory(c) {
			t.Errorf("ValidRewardCategory(%q) = true", c)
		}
	}
}
