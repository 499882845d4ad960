package models

import "testing"

func TestPlanHasFeature(t *testing.T) {
	tests := []struct {
		plan    Plan
		feature Feature
		want    bool
	}{
		{PlanFree, FeatureBudgets, false},
		{PlanFree, FeatureExpenses, false},
		{PlanFree, FeatureDues, false},
		{PlanBasic, FeatureBudgets, true},
		{PlanBasic, FeatureExpenses, true},
		{PlanBasic, FeatureDues, true},
		{PlanBasic, FeatureAdvancedReporting, false},
		{PlanPro, FeatureBudgets, true},
		{PlanPro, FeatureAdvancedReporting, true},
		{Plan("enterprise"), FeatureBudgets, false},
		{PlanPro, Feature("time_travel"), false},
	}
	for _, tt := range tests {
		if got := tt.plan.HasFeature(tt.feature); got != tt.want {
			t.Errorf("%s.HasFeature(%s) = %v, want %v", tt.plan, tt.feature, got, tt.want)
		}
	}
}

func TestPlanAtLeast(t *testing.T) {
	if !PlanPro.AtLeast(PlanBasic) {
		t.Error("pro should satisfy basic")
	}
	if PlanFree.AtLeast(PlanBasic) {
		t.Error("free should not satisfy basic")
	}
	if Plan("bogus").AtLeast(PlanFree) {
		t.Error("unknown plan should satisfy nothing")
	}
}
