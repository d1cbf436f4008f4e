package convo

import (
	"regexp"
	"strconv"
	"strings"
)

// productCodePattern matches store SKUs like "BOOK-2024-001".
var productCodePattern = regexp.MustCompile(`(?i)[A-Za-z]{2,}-\d{4,}-\d{3,}`)

// searchFillers are conversational lead-ins stripped before using the rest of
// the message as a product query.
var searchFillers = []string{
	"بحث عن", "ابحث عن", "ابحث", "بحث", "دور على", "دور",
	"بدي", "عندك", "موجود",
	"search for", "search", "looking for", "look for", "find",
	"do you have", "i want", "i need",
}

// ExtractSearchQuery strips filler phrases from a search message and returns
// the remaining text as the query. An empty result means the customer gave no
// searchable terms.
func ExtractSearchQuery(text string) string {
	query := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	for _, filler := range searchFillers {
		query = strings.ReplaceAll(query, " "+filler+" ", " ")
	}
	query = strings.Trim(query, " ?؟!.،,")
	return strings.TrimSpace(query)
}

// ExtractProductCode returns the first SKU-shaped token in the message,
// uppercased, or the empty string.
func ExtractProductCode(text string) string {
	return strings.ToUpper(productCodePattern.FindString(text))
}

// quantityWords maps spelled-out quantities to values.
var quantityWords = map[string]int{
	"واحد": 1, "اثنين": 2, "ثلاثة": 3, "أربعة": 4, "خمسة": 5,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
}

// ExtractQuantity scans the message left to right and returns the first
// numeric or spelled-out quantity. Digits inside product codes are ignored.
// Messages carrying no quantity default to 1.
func ExtractQuantity(text string) int {
	cleaned := productCodePattern.ReplaceAllString(text, " ")
	for _, token := range strings.Fields(strings.ToLower(cleaned)) {
		token = strings.Trim(token, "?؟!.،,")
		if n, err := strconv.Atoi(token); err == nil && n > 0 {
			return n
		}
		if n, ok := quantityWords[token]; ok {
			return n
		}
	}
	return 1
}
