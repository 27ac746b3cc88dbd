package fridge

// Error codes sent by the recipe service in error events.
const (
	CodeEmptyPrompt         = "AI_001"
	CodePromptTooLong       = "AI_002"
	CodeQuotaExceeded       = "AI_003"
	CodeUnauthenticated     = "AI_004"
	CodeUpstreamUnavailable = "AI_005"
	CodeTimeout             = "AI_006"
	CodeDisallowedContent   = "AI_007"
)

// Error codes synthesized on the client side by transports and the Generator.
const (
	CodeNetwork           = "NETWORK_ERROR"
	CodeStreamInterrupted = "STREAM_INTERRUPTED"
	CodeHTTP              = "HTTP_ERROR"
)

// fallbackMessage is shown when an unknown code arrives without a message.
const fallbackMessage = "生成失敗，請稍後再試"

var errorMessages = map[string]string{
	CodeEmptyPrompt:         "請輸入想吃什麼或可用的食材",
	CodePromptTooLong:       "輸入內容過長，請精簡後再試",
	CodeQuotaExceeded:       "已達每日查詢上限，請明天再試",
	CodeUnauthenticated:     "請先登入後再使用 AI 食譜",
	CodeUpstreamUnavailable: "AI 服務暫時無法使用，請稍後再試",
	CodeTimeout:             "生成時間過長，請稍後再試",
	CodeDisallowedContent:   "內容不符合使用規範，請調整後再試",
	CodeNetwork:             "網路連線失敗，請檢查網路後再試",
	CodeStreamInterrupted:   "連線中斷，請重新生成",
}

// ErrorMessage maps an error code to the user-facing message. Unknown codes
// fall back to the raw server message.
func ErrorMessage(code, raw string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	if raw != "" {
		return raw
	}
	return fallbackMessage
}
