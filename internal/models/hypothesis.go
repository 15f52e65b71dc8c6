package models

import "time"

// FinancialImpact is an exposure range in one currency.
type FinancialImpact struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// RiskAssessment describes what a pattern puts at risk. Level is always the
// detector's RiskLevel for the pattern.
type RiskAssessment struct {
	Level                 RiskLevel        `json:"level"`
	ImpactAreas           []string         `json:"impactAreas"`
	PotentialConsequences []string         `json:"potentialConsequences"`
	FinancialImpact       *FinancialImpact `json:"financialImpact,omitempty"`
}

// RootCauseHypothesis is the synthesized explanation for a pattern. It is
// created once per analysis pass and immutable afterwards.
type RootCauseHypothesis struct {
	ID                 string               `json:"id"`
	Pattern            DetectedPattern      `json:"pattern"`
	Hypothesis         string               `json:"hypothesis"`
	SupportingEvidence []CrossAgentResponse `json:"supportingEvidence"`
	Confidence         float64              `json:"confidence"`
	RiskAssessment     RiskAssessment       `json:"riskAssessment"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}
