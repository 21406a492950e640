package models

// Step is one card of the "How SolarMan Works" section
type Step struct {
	Number           int
	Title            string
	Description      string
	Benefit          string
	CompletedMessage string
}

// HowItWorksSteps returns the three onboarding steps shown on the home page
func HowItWorksSteps() []Step {
	return []Step{
		{
			Number:           1,
			Title:            "Qualify Your Home",
			Description:      "See if your home qualifies for solar.",
			Benefit:          "Takes only 5 minutes",
			CompletedMessage: "Step 1 Complete! Your home is qualified for solar installation.",
		},
		{
			Number:           2,
			Title:            "Preparation",
			Description:      "Once your custom system is designed, we handle all permitting and paperwork to ensure a smooth start.",
			Benefit:          "Hassle-free process",
			CompletedMessage: "Step 2 Complete! All paperwork and permits are processed.",
		},
		{
			Number:           3,
			Title:            "Installation",
			Description:      "Our certified solar experts install your high-quality system quickly and professionally.",
			Benefit:          "Professional installation",
			CompletedMessage: "Step 3 Complete! Your solar system is now up and running.",
		},
	}
}

// ComparisonView is what the savings calculator renders
type ComparisonView struct {
	CurrentBill       float64
	FlatRate          float64
	DiscountPct       float64
	AnnualIncreasePct float64
	HorizonYears      int
	Provider          string
	Providers         []string
	TotalSavings      int64
	FirstYearSavings  int64
	MonthlySavings    int64
	ChartDataURL      string
	ChartPageURL      string
}

// ChartView is what the full chart page renders
type ChartView struct {
	CurrentBill       float64
	FlatRate          float64
	AnnualIncreasePct float64
	HorizonYears      int
	TotalSavings      int64
	FirstYearSavings  int64
	DataURL           string
	Notice            string
}

// ReferralBenefits lists the perks of the referral program
func ReferralBenefits() []string {
	return []string{
		"Each successful referral earns you a 5% discount on your monthly rate",
		"Your friends and family get a $250 signing bonus",
		"After 6 referrals, you'll receive our guaranteed lowest rate",
		"Simple process: just share your unique referral code",
	}
}
