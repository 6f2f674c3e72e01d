package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAI generates text with the Responses API via the official SDK.
type OpenAI struct {
	Model  string
	client openai.Client
	hasKey bool
}

func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// повторы делает конвейер решения, а не SDK
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		Model:  model,
		client: openai.NewClient(opts...),
		hasKey: strings.TrimSpace(apiKey) != "",
	}
}

func (o *OpenAI) Name() string     { return "gpt" }
func (o *OpenAI) GetModel() string { return o.Model }

func (o *OpenAI) Generate(ctx context.Context, p Prompt) (string, error) {
	if !o.hasKey {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentParamOfInputText(p.User),
					},
					"user",
				),
			},
		},
	}
	if s := strings.TrimSpace(p.System); s != "" {
		params.Instructions = openai.String(s)
	}
	// gpt-5* принимает только temperature=1
	if !strings.Contains(o.Model, "gpt-5") {
		params.Temperature = openai.Float(float64(p.Temperature))
	}
	if p.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(p.MaxOutputTokens))
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Service: o.Name(), Kind: FailureStatus, Status: apiErr.StatusCode, Body: truncate([]byte(apiErr.Error()), snippetLimit), Err: err}
		}
		return "", classify(o.Name(), err)
	}
	txt := strings.TrimSpace(resp.OutputText())
	if txt == "" {
		return "", &UpstreamError{Service: o.Name(), Kind: FailureEmpty, Err: ErrEmpty}
	}
	return txt, nil
}
