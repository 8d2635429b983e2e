package llm

import (
	"fmt"
	"strings"

	"incomeinsight/ml"
)

const maxAdviceWords = 200

// BuildPrompt renders the explanation request for a resolved profile. The
// categorical values are expected to be the decoded vocabulary entries the
// model actually saw.
func BuildPrompt(profile ml.Profile, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The predicted income category for this individual is: %s.\n\n", label)
	b.WriteString("User Profile:\n")
	fmt.Fprintf(&b, "- Age: %d\n", profile.Age)
	fmt.Fprintf(&b, "- Education: %s\n", profile.Education)
	fmt.Fprintf(&b, "- Marital Status: %s\n", profile.MaritalStatus)
	fmt.Fprintf(&b, "- Occupation: %s\n", profile.Occupation)
	fmt.Fprintf(&b, "- Sex: %s\n", profile.Sex)
	fmt.Fprintf(&b, "- Hours/Week: %d\n", profile.HoursPerWeek)
	fmt.Fprintf(&b, "- Capital Gain: %d\n", profile.CapitalGain)
	fmt.Fprintf(&b, "- Capital Loss: %d\n\n", profile.CapitalLoss)
	fmt.Fprintf(&b, "Based on this profile and income prediction, provide helpful insights or recommendations "+
		"for improving financial well-being or career advancement in **no more than %d words**. "+
		"Focus on realistic, actionable tips tailored to this individual.", maxAdviceWords)
	return b.String()
}
