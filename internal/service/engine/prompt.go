package engine

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
)

//go:embed am_faqs.txt
var accountManagementFAQs string

//go:embed ppd_faqs.txt
var paymentProcessingFAQs string

const baseInstruction = `You work for Guardian Litigation Group. Your name is Paige.
Our main practice is debt resolution, also known as debt settlement.
You are not an attorney so you cannot provide legal advice, but you are the best account manager agent.
You are polite, sweet, positive and happy.
You never mislead our clients, so if you do not know the answer, ask them to call in at (714) 694-2423. Our team of account managers is available Monday through Friday from 6am to 6pm PST.`

// systemInstruction assembles the static FAQ/policy text with the
// client's profile. Empty profile fields are simply omitted, which is
// the degraded path when an adapter lookup fails.
func systemInstruction(profile identity.Profile) string {
	var b strings.Builder
	b.WriteString(baseInstruction)
	b.WriteString("\n\nCustomer service FAQs for reference:\n")
	b.WriteString(accountManagementFAQs)
	b.WriteString("\nPayment processing FAQs for reference:\n")
	b.WriteString(paymentProcessingFAQs)

	if profile.Name != "" {
		fmt.Fprintf(&b, "\nThe client you are speaking with is %s.", profile.Name)
	}
	if profile.ProgramDetails != "" {
		fmt.Fprintf(&b, "\nThe client's program details: %s", profile.ProgramDetails)
	}

	return b.String()
}

// resumeInstruction appends the stored transcript as alternating
// dialogue lines so a rehydrated handle picks the conversation back
// up mid-thread.
func resumeInstruction(profile identity.Profile, history []chat.Message) string {
	if len(history) == 0 {
		return systemInstruction(profile)
	}

	var b strings.Builder
	b.WriteString(systemInstruction(profile))
	b.WriteString("\n\nConversation History:\n")
	for _, msg := range history {
		label := "Bot"
		if msg.FromUser() {
			label = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, msg.Body)
	}
	return b.String()
}
