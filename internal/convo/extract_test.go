package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSearchQuery(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"arabic filler stripped", "بحث عن رياضيات", "رياضيات"},
		{"arabic want filler", "بدي كتاب الفيزياء", "كتاب الفيزياء"},
		{"english filler stripped", "search for physics book", "physics book"},
		{"do you have", "do you have harry potter", "harry potter"},
		{"bare query passes through", "الكيمياء العضوية", "الكيمياء العضوية"},
		{"filler only leaves nothing", "ابحث عن", ""},
		{"punctuation trimmed", "عندك رياضيات؟", "رياضيات"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractSearchQuery(tc.text))
		})
	}
}

func TestExtractProductCode(t *testing.T) {
	assert.Equal(t, "BK-2024-001", ExtractProductCode("بدي اطلب bk-2024-001 لو سمحت"))
	assert.Equal(t, "BOOK-2024-015", ExtractProductCode("order BOOK-2024-015 please"))
	assert.Equal(t, "", ExtractProductCode("بدي كتاب رياضيات"))
	assert.Equal(t, "", ExtractProductCode("A-2024-001"))
}

func TestExtractQuantity(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"digit", "بدي 3 قطع", 3},
		{"arabic word", "بدي اثنين من هذا الكتاب", 2},
		{"english word", "I want two books", 2},
		{"first numeric token wins", "بدي اثنين لا خليها 5", 2},
		{"default when absent", "بدي هذا الكتاب", 1},
		{"code digits ignored", "اطلب BK-2024-001", 1},
		{"code digits ignored but quantity found", "اطلب BK-2024-001 عدد 4", 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractQuantity(tc.text))
		})
	}
}
