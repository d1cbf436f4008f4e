package convo

import (
	"fmt"
	"strings"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/ai"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/repo"
)

// Fixed customer-facing texts. The store serves Lebanese customers, so the
// canned side of the conversation is Arabic regardless of inbound language.
const (
	msgSearchPrompt = "🔍 ما هو المنتج الذي تبحث عنه؟\n\nيمكنك البحث باسم الكتاب أو الكود."

	msgBalanceNotLinked = "💳 عذراً، حسابك غير مرتبط بنظامنا بعد.\n\nالرجاء التواصل معنا لربط حسابك."

	msgOrderPrompt = "🛒 لإنشاء طلب، الرجاء تحديد:\n\n1. اسم المنتج أو الكود\n2. الكمية المطلوبة\n\nمثال: \"بدي كتاب رياضيات 2 حبة\""

	msgProductNotFound = "❌ عذراً، المنتج غير موجود.\n\nالرجاء البحث عن المنتج أولاً للحصول على الكود الصحيح."

	msgOrderFailed = "⚠️ حدث خطأ أثناء إنشاء الطلب.\n\nالرجاء المحاولة مرة أخرى أو الاتصال بنا."

	msgAIFallback = "🤖 عذراً، أواجه مشكلة في المعالجة.\n\nكيف يمكنني مساعدتك؟"
)

func noResultsMessage(query string) string {
	return fmt.Sprintf("❌ عذراً، لم أجد منتجات مطابقة لـ \"%s\".\n\nجرّب كلمات بحث مختلفة أو اتصل بنا للمساعدة.", query)
}

func outOfStockMessage(productName string) string {
	return fmt.Sprintf("📦 عذراً، المنتج \"%s\" غير متوفر حالياً.\n\nهل تريد طلب منتج آخر؟", productName)
}

func welcomeMessage(storeName, customerName string) string {
	greeting := "مرحباً!"
	if customerName != "" {
		greeting = fmt.Sprintf("مرحباً %s!", customerName)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s 👋\n\n", greeting)
	fmt.Fprintf(&sb, "أهلاً بك في **%s** 📚\n\n", storeName)
	sb.WriteString("كيف يمكنني مساعدتك اليوم؟\n\n")
	sb.WriteString("• البحث عن كتب 🔍\n")
	sb.WriteString("• الاستفسار عن الأسعار 💰\n")
	sb.WriteString("• طلب منتجات 🛒\n")
	sb.WriteString("• الاستعلام عن حسابك 💳")
	return sb.String()
}

func helpMessage(storeLocation string) string {
	var sb strings.Builder
	sb.WriteString("📚 **كيف يمكنني مساعدتك؟**\n\n")
	sb.WriteString("**للبحث عن كتاب:**\n")
	sb.WriteString("اكتب: \"بحث عن [اسم الكتاب]\"\n\n")
	sb.WriteString("**لطلب منتج:**\n")
	sb.WriteString("اكتب: \"بدي [اسم المنتج]\"\n\n")
	sb.WriteString("**للاستعلام عن حسابك:**\n")
	sb.WriteString("اكتب: \"رصيدي\" أو \"حسابي\"\n\n")
	fmt.Fprintf(&sb, "**للتواصل:**\nيمكنك الاتصال بنا مباشرة أو زيارة متجرنا في %s", storeLocation)
	return sb.String()
}

// balanceMessage reports balance, credit limit and remaining credit. The
// available figure treats the balance as owed debt, so it is the limit minus
// the balance magnitude.
func balanceMessage(c *repo.Customer, currency string) string {
	available := c.CreditLimit - abs(c.Balance)
	var sb strings.Builder
	sb.WriteString("💳 معلومات حسابك:\n\n")
	fmt.Fprintf(&sb, "👤 الاسم: %s\n", c.DisplayName())
	fmt.Fprintf(&sb, "💰 الرصيد: %s %s\n", ai.FormatAmount(c.Balance), currency)
	fmt.Fprintf(&sb, "📊 الحد الائتماني: %s %s\n", ai.FormatAmount(c.CreditLimit), currency)
	fmt.Fprintf(&sb, "✅ المتاح: %s %s\n", ai.FormatAmount(available), currency)
	return sb.String()
}

func searchResultsMessage(products []repo.Product, currency string) string {
	var sb strings.Builder
	sb.WriteString("🔍 نتائج البحث:\n\n")
	for i, p := range products {
		fmt.Fprintf(&sb, "%d. **%s**\n", i+1, p.Name)
		fmt.Fprintf(&sb, "   📦 الكود: %s\n", p.Code)
		fmt.Fprintf(&sb, "   💰 السعر: %s %s\n", ai.FormatAmount(p.Price), currency)
		if p.StockQuantity > 0 {
			sb.WriteString("   ✅ متوفر\n\n")
		} else {
			sb.WriteString("   ❌ غير متوفر\n\n")
		}
	}
	sb.WriteString("لطلب أي منتج، اكتب رقمه أو اسمه.")
	return sb.String()
}

func orderConfirmationMessage(order *repo.Order, currency string) string {
	var items strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&items, "• %s × %d = %s %s\n",
			item.ProductName, item.Quantity, ai.FormatAmount(float64(item.Quantity)*item.UnitPrice), currency)
	}
	var sb strings.Builder
	sb.WriteString("✅ تم استلام طلبك بنجاح!\n\n")
	fmt.Fprintf(&sb, "📋 رقم الطلب: %s\n", order.OrderNumber)
	fmt.Fprintf(&sb, "💰 المبلغ الإجمالي: %s %s\n\n", ai.FormatAmount(order.Total()), currency)
	fmt.Fprintf(&sb, "📦 المنتجات:\n%s\n", items.String())
	fmt.Fprintf(&sb, "📅 التاريخ: %s\n", order.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "⏳ الحالة: %s\n\n", order.Status)
	sb.WriteString("شكراً لتسوقك معنا! 🙏")
	return sb.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
