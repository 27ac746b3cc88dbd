package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/fwojciec/fridge"
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Limits for outbound input, counted in user-perceived characters.
const (
	MaxPromptLength     = 500
	MaxIngredientLength = 50
	MaxIngredients      = 30
)

// injectionPatterns run against the folded, lower-cased prompt. They cover
// attempts to override earlier instructions, redefine the assistant's role,
// extract the system prompt, and chat-template control tokens.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(ignore|disregard|forget|override|bypass|skip)\b.{0,40}\b(previous|prior|above|earlier|preceding|all|any|the|your|system)\b.{0,40}\b(instructions?|prompts?|rules?|directions?|guidelines?|directives?)\b`),
	regexp.MustCompile(`\byou are (now|no longer)\b`),
	regexp.MustCompile(`\bfrom now on,? you\b`),
	regexp.MustCompile(`\b(pretend (to be|you are)|role-?play as|act as (an? |the )?(ai|assistant|system|developer|admin|administrator|unrestricted|jailbroken))\b`),
	regexp.MustCompile(`\b(system|developer|hidden|initial|original)\s+(prompt|message|instructions?)\b`),
	regexp.MustCompile(`\b(jailbreak|dan mode|developer mode)\b`),
	regexp.MustCompile(`(?m)<\|?(im_start|im_end|system|endoftext)\|?>|\[/?inst\]|<</?sys>>|^\s*#{1,6}\s*(system|instructions?)\b`),
	regexp.MustCompile(`(忽略|無視|无视|忘記|忘记|忽視|忽视|不要理會|不要理会|跳過|跳过|覆蓋|覆盖).{0,10}(之前|先前|以上|上面|前面|上述|所有|全部|系統|系统|原本|原來|原来).{0,10}(指令|指示|規則|规则|提示|設定|设定|要求|命令)`),
	regexp.MustCompile(`(你現在是|你现在是|從現在開始你是|从现在开始你是|你不再是)`),
	regexp.MustCompile(`(系統提示|系统提示|系統指令|系统指令|系統訊息|系统消息|系統設定|系统设定)`),
	regexp.MustCompile(`(扮演|假裝|假装).{0,6}(ai|助理|助手|系統|系统|管理員|管理员|開發者|开发者)`),
}

// ValidatePrompt checks a user prompt before it is sent. Valid prompts are
// returned trimmed with whitespace runs collapsed to single spaces.
func (v *Validator) ValidatePrompt(prompt string) fridge.PromptVerdict {
	return ValidatePrompt(prompt)
}

// ValidatePrompt is the function form of [Validator.ValidatePrompt].
func ValidatePrompt(prompt string) fridge.PromptVerdict {
	cleaned := collapse(norm.NFC.String(prompt))
	if cleaned == "" {
		return fridge.PromptVerdict{Reason: fridge.PromptEmpty}
	}
	if uniseg.GraphemeClusterCount(cleaned) > MaxPromptLength {
		return fridge.PromptVerdict{Reason: fridge.PromptTooLong}
	}
	if hasHiddenRunes(cleaned) {
		return fridge.PromptVerdict{Reason: fridge.PromptControlChars}
	}
	folded := fold(cleaned)
	for _, re := range injectionPatterns {
		if re.MatchString(folded) {
			return fridge.PromptVerdict{Reason: fridge.PromptInjection}
		}
	}
	return fridge.PromptVerdict{Valid: true, Sanitized: cleaned}
}

// CleanIngredients implements [fridge.Validator].
func (v *Validator) CleanIngredients(ingredients []string) []string {
	return CleanIngredients(ingredients)
}

// CleanIngredients trims each entry and drops empty, overlong and duplicate
// ones. Duplicates are detected case- and width-insensitively; the first
// spelling wins. At most MaxIngredients entries are kept.
func CleanIngredients(ingredients []string) []string {
	var out []string
	seen := make(map[string]bool, len(ingredients))
	for _, raw := range ingredients {
		if len(out) == MaxIngredients {
			break
		}
		s := collapse(norm.NFC.String(raw))
		if s == "" || hasHiddenRunes(s) || uniseg.GraphemeClusterCount(s) > MaxIngredientLength {
			continue
		}
		key := fold(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// collapse trims s and replaces every whitespace run with one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fold maps compatibility and full-width forms to their plain equivalents
// and lower-cases the result, so "ＩＧＮＯＲＥ" matches "ignore".
func fold(s string) string {
	return strings.ToLower(width.Fold.String(norm.NFKC.String(s)))
}

// hasHiddenRunes reports control, zero-width and bidi-override characters.
func hasHiddenRunes(s string) bool {
	for _, r := range s {
		if isHidden(r) {
			return true
		}
	}
	return false
}

func isHidden(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case unicode.IsControl(r):
		return true
	// ZWJ and ZWNJ are allowed; emoji sequences and some scripts need them.
	case r == 0x200B, r == 0x200E, r == 0x200F, // ZWSP, LRM, RLM
		r >= 0x202A && r <= 0x202E, // bidi embeddings and overrides
		r >= 0x2066 && r <= 0x2069, // bidi isolates
		r == 0xFEFF:
		return true
	default:
		return false
	}
}
