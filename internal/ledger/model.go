package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies a ledger account
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// IsCreditNormal reports whether the account's balance grows with credits
func (t AccountType) IsCreditNormal() bool {
	return t == AccountTypeLiability || t == AccountTypeIncome
}

// Account is a named ledger account resolved by its derived key
type Account struct {
	ID               uuid.UUID
	Key              string
	Name             string
	Type             AccountType
	Currency         string
	OwnerUserID      *uuid.UUID
	OwnerCommodityID *uuid.UUID
	CreatedAt        time.Time
}

// EntryType is the business reason for a ledger entry
type EntryType string

const (
	EntryTypeDeposit    EntryType = "DEPOSIT"
	EntryTypeWithdrawal EntryType = "WITHDRAWAL"
	EntryTypeInvestment EntryType = "INVESTMENT"
	EntryTypeDividend   EntryType = "DIVIDEND"
	EntryTypePayout     EntryType = "PAYOUT"
	EntryTypeRefund     EntryType = "REFUND"
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeWithdrawal, EntryTypeInvestment, EntryTypeDividend,
		EntryTypePayout, EntryTypeRefund, EntryTypeAdjustment:
		return true
	}
	return false
}

// Metadata is the closed set of annotations an entry may carry
type Metadata struct {
	IdempotencyKey    string     `json:"idempotency_key,omitempty"`
	ApprovalRequestID *uuid.UUID `json:"approval_request_id,omitempty"`
	InvestmentID      *uuid.UUID `json:"investment_id,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	InvestorCount     int        `json:"investor_count,omitempty"`
	InvestmentCount   int        `json:"investment_count,omitempty"`
}

// Validate checks the fields each entry type requires
func (m Metadata) Validate(t EntryType) error {
	switch t {
	case EntryTypeAdjustment:
		if m.Reason == "" {
			return ErrInvalidMetadata.Explain("adjustment entries require a reason")
		}
	case EntryTypeInvestment:
		if m.InvestmentID == nil {
			return ErrInvalidMetadata.Explain("investment entries require an investment id")
		}
	case EntryTypePayout:
		if m.InvestorCount <= 0 {
			return ErrInvalidMetadata.Explain("payout entries require an investor count")
		}
	}
	return nil
}

// Entry is an immutable, balanced ledger record
type Entry struct {
	ID            uuid.UUID
	Type          EntryType
	Description   string
	Currency      string
	UserID        *uuid.UUID
	CommodityID   *uuid.UUID
	TransactionID *uuid.UUID
	Metadata      Metadata
	CreatedAt     time.Time
	Lines         []*Line
}

// Line is one side of an entry against a single account
type Line struct {
	EntryID   uuid.UUID
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Totals returns the debit and credit sums of the entry's lines
func (e *Entry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// IsBalanced reports whether debit and credit totals are exactly equal
func (e *Entry) IsBalanced() bool {
	debit, credit := e.Totals()
	return debit.Equal(credit)
}

// AccountBalance aggregates all lines posted to one account
type AccountBalance struct {
	Account *Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Normal returns the balance on the account's normal side:
// credit minus debit for liabilities and income, debit minus credit otherwise
func (b *AccountBalance) Normal() decimal.Decimal {
	if b.Account != nil && b.Account.Type.IsCreditNormal() {
		return b.Credit.Sub(b.Debit)
	}
	return b.Debit.Sub(b.Credit)
}

// EntryFilter defines filters for listing entries
type EntryFilter struct {
	UserID      *uuid.UUID
	CommodityID *uuid.UUID
	Type        *EntryType
	Limit       int
	Offset      int
}
