package modelclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/relayctl/atc/internal/streamevent"
)

// Config holds connection details for an OpenAIResponses client. Loading these from the
// external configuration layer (spec.md §9's Non-goal list excludes config loading itself) is
// the caller's responsibility; this package only consumes the resolved values.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	ReasoningEffort string // "minimal", "low", "medium", "high"
}

// OpenAIResponses is the production Client, talking to an OpenAI-Responses-compatible endpoint.
// Grounded on internal/llmstream.streamingConversation.sendAsyncOpenAIResponses: the streaming
// loop, content/reasoning delta accumulation, and function-call extraction are adapted nearly
// unchanged; only the output shape (internal/streamevent.Event instead of llmstream.Event) and
// the turn bookkeeping (no local Turn history; the caller owns internal/history) differ.
type OpenAIResponses struct {
	cfg Config

	// previousResponseID links this request to the provider's prior stored response, so the
	// model has continuity without the caller resending the whole transcript.
	previousResponseID string
}

func NewOpenAIResponses(cfg Config) *OpenAIResponses {
	return &OpenAIResponses{cfg: cfg}
}

func (c *OpenAIResponses) SendAsync(ctx context.Context, req Request) <-chan streamevent.Event {
	out := make(chan streamevent.Event, 1024)
	go func() {
		defer close(out)

		toDebouncer := make(chan streamevent.Event, 1024)
		debounceDone := make(chan struct{})
		go func() {
			debounceEvents(ctx, toDebouncer, out)
			close(debounceDone)
		}()

		runWithRetry(ctx, req, toDebouncer, c.sendOnce)

		close(toDebouncer)
		<-debounceDone
	}()
	return out
}

func (c *OpenAIResponses) ResetChat(ctx context.Context) error {
	c.previousResponseID = ""
	return nil
}

func (c *OpenAIResponses) sendOnce(ctx context.Context, req Request, out chan<- streamevent.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.cfg.APIKey == "" {
		return fmt.Errorf("modelclient: missing API key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(c.cfg.APIKey),
		option.WithMaxRetries(3),
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	params, err := c.buildParams(req)
	if err != nil {
		return err
	}

	stream := client.Responses.NewStreaming(ctx, params)
	if stream == nil {
		return makeRetryable(fmt.Errorf("modelclient: stream unavailable"))
	}
	defer stream.Close()

	if err := stream.Err(); err != nil {
		return makeRetryable(err)
	}

	builders := newContentBuilders()
	completed := false

	const tooManyBlankFCDeltas = 100
	blankFCDeltas := 0

	for stream.Next() {
		evt := stream.Current()

		if evt.Type == "response.completed" {
			c.previousResponseID = evt.AsResponseCompleted().Response.ID
		}

		if evt.Type == "response.function_call_arguments.delta" {
			if strings.TrimSpace(evt.AsResponseFunctionCallArgumentsDelta().Delta) == "" {
				blankFCDeltas++
				if blankFCDeltas >= tooManyBlankFCDeltas {
					return makeRetryable(fmt.Errorf("modelclient: too many blank function-call-argument deltas"))
				}
			} else {
				blankFCDeltas = 0
			}
		}

		ev, cont, err := processEvent(evt, builders, req)
		if err != nil {
			return err
		}
		if ev != nil {
			if ev.Type == streamevent.TypeFinished {
				completed = true
			}
			if !trySend(ctx, out, *ev) {
				return nil
			}
		}
		if !cont {
			break
		}
	}

	if err := stream.Err(); err != nil {
		return makeRetryable(err)
	}
	if !completed {
		return makeRetryable(fmt.Errorf("modelclient: stream ended without a terminal event"))
	}
	return nil
}

func (c *OpenAIResponses) buildParams(req Request) (responses.ResponseNewParams, error) {
	if c.cfg.Model == "" {
		return responses.ResponseNewParams{}, fmt.Errorf("modelclient: model is required")
	}

	items := make(responses.ResponseInputParam, 0, len(req.ToolResults)+1)
	if len(req.ToolResults) > 0 {
		for _, tr := range req.ToolResults {
			out := responses.ResponseInputItemFunctionCallOutputOutputUnionParam{OfString: param.NewOpt(tr.Text)}
			item := responses.ResponseInputItemFunctionCallOutputParam{CallID: tr.CallID, Output: out}
			items = append(items, responses.ResponseInputItemUnionParam{OfFunctionCallOutput: &item})
		}
	} else {
		message := responses.EasyInputMessageParam{
			Role: responses.EasyInputMessageRoleUser,
			Type: "message",
			Content: responses.EasyInputMessageContentUnionParam{
				OfInputItemContentList: responses.ResponseInputMessageContentListParam{
					responses.ResponseInputContentParamOfInputText(req.Text),
				},
			},
		}
		items = append(items, responses.ResponseInputItemUnionParam{OfMessage: &message})
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.cfg.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		Store: param.NewOpt(true),
	}
	params.Reasoning.Summary = responses.ReasoningSummaryAuto
	if c.cfg.ReasoningEffort != "" {
		params.Reasoning.Effort = shared.ReasoningEffort(c.cfg.ReasoningEffort)
	}
	if c.previousResponseID != "" {
		params.PreviousResponseID = param.NewOpt(c.previousResponseID)
	}
	params.ParallelToolCalls = param.NewOpt(true)

	if len(req.Tools) > 0 {
		tools := make([]responses.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			schema := map[string]any{"type": "object", "properties": t.Parameters}
			function := responses.FunctionToolParam{
				Name:       t.Name,
				Parameters: schema,
				Strict:     param.NewOpt(false),
				Type:       "function",
			}
			if t.Description != "" {
				function.Description = param.NewOpt(t.Description)
			}
			tools = append(tools, responses.ToolUnionParam{OfFunction: &function})
		}
		params.Tools = tools
	}

	return params, nil
}

type contentBuilders struct {
	text      map[string]*strings.Builder
	reasoning map[string]*strings.Builder
}

func newContentBuilders() *contentBuilders {
	return &contentBuilders{
		text:      make(map[string]*strings.Builder),
		reasoning: make(map[string]*strings.Builder),
	}
}

// processEvent translates a single OpenAI Responses stream event into the expanded
// streamevent.Event union, returning (event-to-send, should-continue-reading, error). Errors
// here are provider-reported failures (response.failed/error) and are not retryable by
// default; the caller's own retry loop only retries transport-level failures. response.incomplete
// is not an error: it ends the stream with a Finished event carrying the mapped finish reason.
func processEvent(evt responses.ResponseStreamEventUnion, b *contentBuilders, req Request) (*streamevent.Event, bool, error) {
	switch evt.Type {
	case "response.output_text.delta":
		d := evt.AsResponseOutputTextDelta()
		if d.Delta == "" {
			return nil, true, nil
		}
		return &streamevent.Event{Type: streamevent.TypeContent, ContentDelta: d.Delta}, true, nil

	case "response.reasoning_summary_text.delta":
		d := evt.AsResponseReasoningSummaryTextDelta()
		if d.Delta == "" {
			return nil, true, nil
		}
		return &streamevent.Event{Type: streamevent.TypeThought, ThoughtSummary: d.Delta}, true, nil

	case "response.output_item.done":
		item := evt.AsResponseOutputItemDone().Item
		if item.Type != "function_call" {
			return nil, true, nil
		}
		fn := item.AsFunctionCall()
		var args map[string]any
		if fn.Arguments != "" {
			if err := json.Unmarshal([]byte(fn.Arguments), &args); err != nil {
				return nil, false, fmt.Errorf("modelclient: decoding tool call arguments: %w", err)
			}
		}
		return &streamevent.Event{Type: streamevent.TypeToolCallRequest, ToolCall: &streamevent.ToolCallRequest{
			CallID: fn.CallID,
			Name:   fn.Name,
			Args:   args,
		}}, true, nil

	case "response.completed":
		return &streamevent.Event{Type: streamevent.TypeFinished, FinishReason: streamevent.FinishReasonStop}, false, nil

	case "response.failed":
		f := evt.AsResponseFailed()
		msg := f.Response.Error.Message
		if msg == "" {
			msg = "response failed"
		}
		return nil, false, fmt.Errorf("%s (code=%s)", msg, f.Response.Error.Code)

	case "response.incomplete":
		in := evt.AsResponseIncomplete()
		reason := in.Response.IncompleteDetails.Reason
		if reason == "" {
			reason = "incomplete"
		}
		return &streamevent.Event{Type: streamevent.TypeFinished, FinishReason: incompleteReasonToFinish(reason)}, false, nil

	case "error":
		e := evt.AsError()
		msg := e.Message
		if msg == "" {
			msg = "openai streaming error"
		}
		return nil, false, fmt.Errorf("%s (code=%s)", msg, e.Code)

	default:
		return nil, true, nil
	}
}

func incompleteReasonToFinish(reason string) streamevent.FinishReason {
	switch reason {
	case "max_output_tokens":
		return streamevent.FinishReasonMaxTokens
	case "content_filter":
		return streamevent.FinishReasonSafety
	default:
		return streamevent.FinishReasonOther
	}
}
