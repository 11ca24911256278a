package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	if fallback := GetCatalog("missing-locale"); fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if empty := GetCatalog(""); empty != base {
		t.Fatal("expected empty locale to resolve to en-US")
	}
}

func TestGetCatalogMatchesRegion(t *testing.T) {
	pt := NewCatalog("pt-BR", map[Code]string{CodeContractPaused: "O desafio está pausado"})
	RegisterCatalog("pt-BR", pt)
	if got := GetCatalog("pt"); got != pt {
		t.Fatalf("GetCatalog(pt) = %v, want pt-BR catalog", got.Locale())
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestEveryCodeHasEnglishMessage(t *testing.T) {
	cat := GetCatalog(BaseLocale)
	codes := []Code{
		CodeUnauthorized, CodeInvalidState, CodeAlreadyExtended, CodeAlreadyAccepted,
		CodeAlreadyCompleted, CodeContractPaused, CodeChallengeInactive,
		CodeInsufficientBalance, CodeInvalidAmount, CodeInvalidDuration,
		CodeInvalidIdentity, CodeInvalidArgument, CodeNotFound, CodeAlreadyExists,
	}
	for _, code := range codes {
		if got := cat.Format(code, map[string]string{"Caller": "0xabc"}); got == code {
			t.Fatalf("missing en-US message for %s", code)
		}
	}
}
