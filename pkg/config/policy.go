package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ApprovalPolicy holds the magnitudes at or above which an admin action needs a second approver
type ApprovalPolicy struct {
	WalletAdjustment  decimal.Decimal
	DistributePayouts decimal.Decimal
}

// DefaultApprovalPolicy returns the built-in thresholds
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		WalletAdjustment:  decimal.NewFromInt(10_000),
		DistributePayouts: decimal.NewFromInt(100_000),
	}
}

// Validate checks that every threshold is positive
func (p ApprovalPolicy) Validate() error {
	if !p.WalletAdjustment.IsPositive() {
		return fmt.Errorf("wallet adjustment approval threshold must be positive")
	}
	if !p.DistributePayouts.IsPositive() {
		return fmt.Errorf("payout approval threshold must be positive")
	}
	return nil
}

// policyFile is the on-disk YAML shape
//
//	thresholds:
//	  wallet_adjustment: "25000"
//	  distribute_payouts: "250000.00"
type policyFile struct {
	Thresholds struct {
		WalletAdjustment  string `yaml:"wallet_adjustment"`
		DistributePayouts string `yaml:"distribute_payouts"`
	} `yaml:"thresholds"`
}

// PolicyOverride is a partially specified policy read from YAML
type PolicyOverride struct {
	walletAdjustment  *decimal.Decimal
	distributePayouts *decimal.Decimal
}

// LoadApprovalPolicy loads approval thresholds from a YAML file
func LoadApprovalPolicy(path string) (*PolicyOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read approval policy: %w", err)
	}

	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse approval policy: %w", err)
	}

	fp := &PolicyOverride{}
	if raw.Thresholds.WalletAdjustment != "" {
		v, err := decimal.NewFromString(raw.Thresholds.WalletAdjustment)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet_adjustment threshold: %w", err)
		}
		fp.walletAdjustment = &v
	}
	if raw.Thresholds.DistributePayouts != "" {
		v, err := decimal.NewFromString(raw.Thresholds.DistributePayouts)
		if err != nil {
			return nil, fmt.Errorf("invalid distribute_payouts threshold: %w", err)
		}
		fp.distributePayouts = &v
	}

	return fp, nil
}

// MergeOver returns base with every threshold present in the file replaced
func (fp *PolicyOverride) MergeOver(base ApprovalPolicy) ApprovalPolicy {
	if fp.walletAdjustment != nil {
		base.WalletAdjustment = *fp.walletAdjustment
	}
	if fp.distributePayouts != nil {
		base.DistributePayouts = *fp.distributePayouts
	}
	return base
}
