package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountSpec describes an account to resolve; Key is derived from the other fields
type AccountSpec struct {
	Key              string
	Name             string
	Type             AccountType
	OwnerUserID      *uuid.UUID
	OwnerCommodityID *uuid.UUID
}

// SystemKey derives the key of a platform-level account
func SystemKey(name string) string {
	return "sys:" + name
}

// WalletKey derives the key of a user's wallet account
func WalletKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:wallet", userID)
}

// EscrowKey derives the key of a commodity's escrow account
func EscrowKey(commodityID uuid.UUID) string {
	return fmt.Sprintf("com:%s:escrow", commodityID)
}

// SystemAccount returns the spec for a platform-level account
func SystemAccount(name string, accountType AccountType) AccountSpec {
	return AccountSpec{
		Key:  SystemKey(name),
		Name: name,
		Type: accountType,
	}
}

// WalletAccount returns the spec for a user's wallet (money the platform owes the user)
func WalletAccount(userID uuid.UUID) AccountSpec {
	id := userID
	return AccountSpec{
		Key:         WalletKey(userID),
		Name:        "wallet " + userID.String(),
		Type:        AccountTypeLiability,
		OwnerUserID: &id,
	}
}

// EscrowAccount returns the spec for a commodity's escrow (investor principal held for the deal)
func EscrowAccount(commodityID uuid.UUID) AccountSpec {
	id := commodityID
	return AccountSpec{
		Key:              EscrowKey(commodityID),
		Name:             "escrow " + commodityID.String(),
		Type:             AccountTypeLiability,
		OwnerCommodityID: &id,
	}
}

// Well-known system accounts
var (
	// CashAccount holds external cash that entered through deposits
	CashAccount = SystemAccount("cash", AccountTypeAsset)
	// PayoutExpenseAccount funds payout distributions
	PayoutExpenseAccount = SystemAccount("payout_expense", AccountTypeExpense)
	// AdjustmentExpenseAccount funds positive admin wallet adjustments
	AdjustmentExpenseAccount = SystemAccount("adjustment_expense", AccountTypeExpense)
	// AdjustmentIncomeAccount receives negative admin wallet adjustments
	AdjustmentIncomeAccount = SystemAccount("adjustment_income", AccountTypeIncome)
)

// Validate checks that the key matches the derivation for its owner
func (s AccountSpec) Validate() error {
	if !s.Type.IsValid() {
		return ErrInvalidAccountType.Explain("invalid account type %q", s.Type)
	}

	switch {
	case s.OwnerUserID != nil && s.OwnerCommodityID != nil:
		return ErrInvalidAccountKey.Explain("account %q cannot have two owners", s.Key)
	case s.OwnerUserID != nil:
		if s.Key != WalletKey(*s.OwnerUserID) {
			return ErrInvalidAccountKey.Explain("account key %q does not match owner user", s.Key)
		}
	case s.OwnerCommodityID != nil:
		if s.Key != EscrowKey(*s.OwnerCommodityID) {
			return ErrInvalidAccountKey.Explain("account key %q does not match owner commodity", s.Key)
		}
	default:
		if !strings.HasPrefix(s.Key, "sys:") || len(s.Key) == len("sys:") {
			return ErrInvalidAccountKey.Explain("system account key %q must be sys:<name>", s.Key)
		}
	}

	return nil
}
