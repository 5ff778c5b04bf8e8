package application

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"contact-gateway/contactform/domain"
)

var (
	linkRe    = regexp.MustCompile(`(?i)https?://|www\.`)
	// só é tag quando o "<" vem colado numa letra, "/" ou "!": "a < b" é texto
	anyTagRe = regexp.MustCompile(`(?s)<[a-zA-Z/!][^>]*>`)
	jsURIRe  = regexp.MustCompile(`(?i)(javascript|vbscript)\s*:`)
	// atributo de evento conhecido, precedido de espaço, aspas ou "/"
	handlerRe = regexp.MustCompile(`(?i)(^|[\s"'/])on(?:abort|animation[a-z]*|auxclick|before[a-z]+|blur|change|click|contextmenu|copy|cut|dblclick|drag[a-z]*|drop|error|focus[a-z]*|hashchange|input|invalid|key(?:down|press|up)|load[a-z]*|message|mouse[a-z]*|paste|pause|play[a-z]*|pointer[a-z]*|reset|resize|scroll|search|select[a-z]*|submit|toggle|touch[a-z]*|transition[a-z]*|unload|wheel)\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
)

// SpamRules são regras de conteúdo configuráveis (env ou arquivo YAML).
// Zero em MaxLinks/MinSubmitTime desliga a regra.
type SpamRules struct {
	MaxLinks        int
	BlockedPatterns []*regexp.Regexp
	MinSubmitTime   time.Duration
	RequireToken    bool
}

// CompilePatterns compila padrões sem diferenciar maiúsculas/minúsculas.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// SpamFilter decide se uma submissão é automatizada/abusiva.
//
// Todos os erros embrulham domain.ErrSpamRejected; o motivo fica só no log.
type SpamFilter struct {
	Rules  SpamRules
	Tokens *FormTokens
}

// CheckHoneypot rejeita quando o campo escondido veio preenchido.
func (f SpamFilter) CheckHoneypot(p domain.SubmissionPayload) error {
	if p.Honeypot != "" {
		return fmt.Errorf("%w: honeypot filled", domain.ErrSpamRejected)
	}
	return nil
}

func (f SpamFilter) Check(p domain.SubmissionPayload) error {
	if err := f.CheckHoneypot(p); err != nil {
		return err
	}
	if err := f.checkToken(p.FormToken); err != nil {
		return err
	}

	if f.Rules.MaxLinks > 0 {
		if n := len(linkRe.FindAllStringIndex(p.Message, -1)); n > f.Rules.MaxLinks {
			return fmt.Errorf("%w: %d links (max %d)", domain.ErrSpamRejected, n, f.Rules.MaxLinks)
		}
	}

	for _, re := range f.Rules.BlockedPatterns {
		if re.MatchString(p.Message) || re.MatchString(p.Name) {
			return fmt.Errorf("%w: blocked pattern %q", domain.ErrSpamRejected, re.String())
		}
	}
	return nil
}

func (f SpamFilter) checkToken(token string) error {
	if f.Tokens == nil {
		return nil
	}
	if token == "" {
		if f.Rules.RequireToken {
			return fmt.Errorf("%w: missing form token", domain.ErrSpamRejected)
		}
		return nil
	}

	age, err := f.Tokens.Age(token)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSpamRejected, err)
	}
	if f.Rules.MinSubmitTime > 0 && age < f.Rules.MinSubmitTime {
		return fmt.Errorf("%w: submitted %s after form load", domain.ErrSpamRejected, age)
	}
	return nil
}

// Sanitize devolve uma cópia do texto sem tags, URIs javascript: e atributos on*=.
//
// As remoções se repetem até o texto parar de mudar: tirar um trecho pode juntar
// outro ("javajavascript:script:" vira "javascript:").
func Sanitize(text string) string {
	out := text
	for {
		next := anyTagRe.ReplaceAllString(out, "")
		next = handlerRe.ReplaceAllString(next, "$1")
		next = jsURIRe.ReplaceAllString(next, "")
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}

// SanitizePayload sanitiza os campos de texto livre. O payload de entrada não é alterado.
func SanitizePayload(p domain.SubmissionPayload) domain.SubmissionPayload {
	p.Name = Sanitize(p.Name)
	p.County = Sanitize(p.County)
	p.City = Sanitize(p.City)
	p.PropertyType = Sanitize(p.PropertyType)
	p.Message = Sanitize(p.Message)
	p.Honeypot = ""
	p.FormToken = ""
	return p
}
