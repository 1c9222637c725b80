package generator

import (
	"fmt"
	"strings"
)

func buildGeneratePrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}

func buildEditPrompt(instruction string) string {
	var b strings.Builder
	b.WriteString("Edit the provided image. ")
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\nKeep every part of the image that the instruction does not mention unchanged.")
	return b.String()
}

func buildVariationPrompt(index, total int, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create variation %d of %d of the provided image. ", index, total)
	b.WriteString("Keep the subject and overall composition recognisable, but vary style, lighting, colour palette and small details.")
	if hint = strings.TrimSpace(hint); hint != "" {
		b.WriteString("\nAdditional direction: ")
		b.WriteString(hint)
	}
	return b.String()
}
