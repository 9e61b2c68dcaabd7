package domain

import (
	"fmt"
	"regexp"
)

// MaxGoals bounds every goal count a result or prediction may carry.
const MaxGoals = 99

var (
	nationCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	groupLabelRegex = regexp.MustCompile(`^[A-Z]$`)
	slugRegex       = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// ValidateGoals checks a single goal count.
func ValidateGoals(name string, goals int) error {
	if goals < 0 || goals > MaxGoals {
		return fmt.Errorf("%s must be between 0 and %d, got %d", name, MaxGoals, goals)
	}
	return nil
}

// ValidateNationCode checks a FIFA-style three letter code.
func ValidateNationCode(code string) error {
	if !nationCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid nation code: %s", code)
	}
	return nil
}

// ValidateGroupLabel checks a single upper-case group letter.
func ValidateGroupLabel(label string) error {
	if !groupLabelRegex.MatchString(label) {
		return fmt.Errorf("invalid group label: %q", label)
	}
	return nil
}

// ValidateSlug checks a tournament slug.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("invalid slug: %q", slug)
	}
	return nil
}

// ValidateFinish checks a result against the fixture it is recorded for.
func ValidateFinish(fx Fixture, p FinishMatchParams) error {
	if err := ValidateGoals("goals_home", p.GoalsHome); err != nil {
		return err
	}
	if err := ValidateGoals("goals_visitor", p.GoalsVisitor); err != nil {
		return err
	}
	if (p.HalftimeHome == nil) != (p.HalftimeVisitor == nil) {
		return fmt.Errorf("halftime goals must be set for both sides")
	}
	if p.HalftimeHome != nil {
		if *p.HalftimeHome > p.GoalsHome || *p.HalftimeVisitor > p.GoalsVisitor {
			return fmt.Errorf("halftime goals exceed final goals")
		}
		if *p.HalftimeHome < 0 || *p.HalftimeVisitor < 0 {
			return fmt.Errorf("halftime goals must not be negative")
		}
	}
	if fx.Phase.IsKnockout() && (!fx.Home.Resolved() || !fx.Visitor.Resolved()) {
		return fmt.Errorf("knockout fixture needs both teams before it can finish")
	}
	if p.PenaltyWinnerID == nil {
		return nil
	}
	if !fx.Phase.IsKnockout() {
		return fmt.Errorf("penalty winner is only allowed in knockout fixtures")
	}
	if p.GoalsHome != p.GoalsVisitor {
		return fmt.Errorf("penalty winner requires equal goals")
	}
	if !fx.Involves(*p.PenaltyWinnerID) {
		return fmt.Errorf("penalty winner must be a participant")
	}
	return nil
}

// ValidatePrediction checks a tipp against the fixture it predicts.
func ValidatePrediction(fx Fixture, p Prediction) error {
	if p.FixtureID != fx.ID {
		return fmt.Errorf("prediction belongs to fixture %s, not %s", p.FixtureID, fx.ID)
	}
	if err := ValidateGoals("goals_home", p.GoalsHome); err != nil {
		return err
	}
	if err := ValidateGoals("goals_visitor", p.GoalsVisitor); err != nil {
		return err
	}
	if p.PenaltyWinnerID == nil {
		return nil
	}
	if !fx.Phase.IsKnockout() {
		return fmt.Errorf("penalty pick is only allowed in knockout fixtures")
	}
	if !p.PredictsDraw() {
		return fmt.Errorf("penalty pick requires a predicted draw")
	}
	return nil
}

// ValidateSpecialPrediction checks that a pick has the shape its spec asks for.
func ValidateSpecialPrediction(spec SpecialSpec, p SpecialPrediction) error {
	if p.SpecID != spec.ID {
		return fmt.Errorf("prediction belongs to spec %s, not %s", p.SpecID, spec.ID)
	}
	if err := p.Predicted.Validate(); err != nil {
		return err
	}
	if p.Predicted.Kind != spec.Kind {
		return fmt.Errorf("predicted kind %s does not match spec kind %s", p.Predicted.Kind, spec.Kind)
	}
	return nil
}
