// Package i18n localizes user-facing strings. The site serves a bilingual
// market, so denial and recovery texts ship in English and Arabic and are
// matched against the request's Accept-Language header.
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var matcher = language.NewMatcher([]language.Tag{
	language.English, // default
	language.Arabic,
})

// Message keys shared between the guard and the denial templates.
const (
	KeyAccessDenied  = "You do not have permission to view this page."
	KeyAuthRequired  = "Please sign in to continue."
	KeySignIn        = "Sign in"
	KeyReturnHome    = "Return home"
	KeyReturnToDash  = "Return to dashboard"
	KeyStillLoading  = "Checking your access, please retry shortly."
)

func init() {
	for key, translation := range map[string]string{
		KeyAccessDenied: "ليس لديك صلاحية لعرض هذه الصفحة.",
		KeyAuthRequired: "الرجاء تسجيل الدخول للمتابعة.",
		KeySignIn:       "تسجيل الدخول",
		KeyReturnHome:   "العودة للرئيسية",
		KeyReturnToDash: "العودة للوحة التحكم",
		KeyStillLoading: "جارٍ التحقق من صلاحياتك، الرجاء المحاولة بعد قليل.",
	} {
		_ = message.SetString(language.Arabic, key, translation)
		_ = message.SetString(language.English, key, key)
	}
}

// Printer returns a message printer for the request's preferred language.
func Printer(r *http.Request) *message.Printer {
	var accept string
	if r != nil {
		accept = r.Header.Get("Accept-Language")
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return message.NewPrinter(language.English)
	}
	tag, _, _ := matcher.Match(tags...)
	return message.NewPrinter(tag)
}
