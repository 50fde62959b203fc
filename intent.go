package flowens

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/flow-platform/flowens/schema"
)

var (
	labelPattern = regexp.MustCompile(`([a-z0-9][a-z0-9-]{2,63})\.eth\b`)
	bareName     = regexp.MustCompile(`\b([a-z0-9][a-z0-9-]{2,63})\b`)
	yearsPattern = regexp.MustCompile(`(\d+)\s*(?:years?|yrs?)`)
)

var intentKeywords = map[string][]string{
	schema.IntentRegisterName: {"register", "buy", "claim", "mint", "purchase"},
	schema.IntentRenewName:    {"renew", "extend"},
	schema.IntentWatchName:    {"watch", "notify", "alert", "track"},
	schema.IntentPriceQuote:   {"price", "cost", "how much", "fee"},
	schema.IntentCheckName:    {"available", "check", "taken", "free"},
}

// intentOrder fixes keyword precedence; "is it available to register"
// means register, not check.
var intentOrder = []string{
	schema.IntentRegisterName,
	schema.IntentRenewName,
	schema.IntentWatchName,
	schema.IntentPriceQuote,
	schema.IntentCheckName,
}

// RecognizeIntent extracts a structured intent from free-form chat input
// using keyword and pattern matching. It never calls out to a model.
func RecognizeIntent(message string) schema.Intent {
	msg := strings.ToLower(message)

	intent := schema.Intent{Type: schema.IntentUnknown, Description: message}
	for _, typ := range intentOrder {
		for _, kw := range intentKeywords[typ] {
			if strings.Contains(msg, kw) {
				intent.Type = typ
				intent.Confidence = 0.6
				break
			}
		}
		if intent.Type != schema.IntentUnknown {
			break
		}
	}

	if m := labelPattern.FindStringSubmatch(msg); m != nil {
		intent.Label = m[1]
	} else if intent.Type != schema.IntentUnknown {
		// fall back to the longest bare token that looks like a label
		for _, m := range bareName.FindAllStringSubmatch(msg, -1) {
			if isIntentKeyword(m[1]) || !ValidLabel(m[1]) {
				continue
			}
			if len(m[1]) > len(intent.Label) {
				intent.Label = m[1]
			}
		}
	}
	if intent.Label != "" && intent.Type != schema.IntentUnknown {
		intent.Confidence = 0.9
	}

	if m := yearsPattern.FindStringSubmatch(msg); m != nil {
		years, err := strconv.Atoi(m[1])
		if err == nil && years > 0 {
			intent.Years = years
		}
	}
	return intent
}

func isIntentKeyword(word string) bool {
	for _, kws := range intentKeywords {
		for _, kw := range kws {
			if word == kw {
				return true
			}
		}
	}
	switch word {
	case "name", "domain", "ens", "eth", "the", "for", "and", "please", "want", "with":
		return true
	}
	return false
}

// BuildAction turns a recognized intent into a fully-defaulted command.
func BuildAction(intent schema.Intent) schema.Action {
	years := intent.Years
	if years == 0 {
		years = 1
	}
	return schema.Action{
		Type: intent.Type,
		Request: schema.RegistrationRequest{
			Label:         NormalizeLabel(intent.Label),
			DurationYears: years,
			ReverseRecord: true,
		},
	}
}

const resolvePromptFmt = `Extract the ENS domain intent from the user message.
Reply with a single JSON object and nothing else:
{"type":"register_name|check_name|price_quote|renew_name|watch_name|unknown","label":"<name without .eth>","years":<int>}

User message: %s`

// IntentService resolves chat messages to actions. Pattern matching runs
// first; the model fallback only handles what patterns cannot.
type IntentService struct {
	completer TextCompleter
}

func NewIntentService(completer TextCompleter) *IntentService {
	return &IntentService{completer: completer}
}

func (i *IntentService) Resolve(ctx context.Context, message string) schema.Intent {
	intent := RecognizeIntent(message)
	if intent.Type != schema.IntentUnknown && intent.Label != "" {
		return intent
	}
	if i.completer == nil {
		return intent
	}

	raw, err := i.completer.Complete(ctx, fmt.Sprintf(resolvePromptFmt, message))
	if err != nil {
		log.Warn("i.completer.Complete(ctx, prompt)", "err", err)
		return intent
	}
	parsed := parseModelIntent(raw, message)
	if parsed.Type == schema.IntentUnknown {
		return intent
	}
	return parsed
}

func parseModelIntent(raw, message string) schema.Intent {
	// models wrap JSON in prose or fences; gjson finds the object anyway
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return schema.Intent{Type: schema.IntentUnknown, Description: message}
	}
	obj := raw[start : end+1]
	if !gjson.Valid(obj) {
		return schema.Intent{Type: schema.IntentUnknown, Description: message}
	}

	typ := gjson.Get(obj, "type").String()
	switch typ {
	case schema.IntentRegisterName, schema.IntentCheckName, schema.IntentPriceQuote,
		schema.IntentRenewName, schema.IntentWatchName:
	default:
		typ = schema.IntentUnknown
	}
	label := NormalizeLabel(gjson.Get(obj, "label").String())
	if !ValidLabel(label) {
		label = ""
	}
	if typ != schema.IntentUnknown && label == "" {
		typ = schema.IntentUnknown
	}
	return schema.Intent{
		Type:        typ,
		Confidence:  0.8,
		Label:       label,
		Years:       int(gjson.Get(obj, "years").Int()),
		Description: message,
	}
}

// Chat resolves a message to an action and executes its read-only or
// attempt-opening part. Ledger submissions always go through the explicit
// attempt endpoints; chat never spends funds on its own.
func (s *FlowEns) Chat(ctx context.Context, message, owner string) (schema.ChatResp, error) {
	intent := s.intent.Resolve(ctx, message)
	action := BuildAction(intent)
	resp := schema.ChatResp{Action: action}

	switch action.Type {
	case schema.IntentRegisterName:
		a, err := s.NewRegistrationAttempt(owner, schema.NewAttemptReq{
			Label:         action.Request.Label,
			DurationYears: action.Request.DurationYears,
		})
		if err != nil {
			return resp, err
		}
		resp.AttemptId = a.ID
		resp.Reply = fmt.Sprintf("Opened a registration attempt for %s (%d year(s)). Run the check step next.", action.Request.Name(), action.Request.DurationYears)
	case schema.IntentCheckName:
		available, err := s.NameAvailable(ctx, action.Request.Label)
		if err != nil {
			return resp, err
		}
		if available {
			resp.Reply = fmt.Sprintf("%s is available.", action.Request.Name())
		} else {
			resp.Reply = fmt.Sprintf("%s is already taken.", action.Request.Name())
		}
	case schema.IntentPriceQuote:
		quote, err := s.NamePrice(ctx, action.Request.Label, action.Request.DurationYears)
		if err != nil {
			return resp, err
		}
		resp.Reply = fmt.Sprintf("%s costs %s ETH for %d year(s).", action.Request.Name(), quote.TotalEth, action.Request.DurationYears)
	case schema.IntentRenewName:
		resp.Reply = fmt.Sprintf("To renew %s for %d year(s), call the renew endpoint.", action.Request.Name(), action.Request.DurationYears)
	case schema.IntentWatchName:
		if err := s.AddWatch(ctx, action.Request.Label, owner); err != nil {
			return resp, err
		}
		resp.Reply = fmt.Sprintf("Watching %s. You will be notified when it becomes available.", action.Request.Name())
	default:
		resp.Reply = "Sorry, I could not work out what you want. Try: register myname.eth for 2 years."
	}
	return resp, nil
}
