package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ensembleai/ensemble/pkg/models"
)

// ClaudeConfig contains configuration for creating a ClaudeAgent.
type ClaudeConfig struct {
	// Name is the agent's identifier within the orchestrator.
	Name string
	// Model is the Claude model to use (e.g., anthropic.ModelClaudeSonnet4_20250514).
	Model anthropic.Model
	// SystemPrompt is the agent's system instruction.
	SystemPrompt string
	// MaxTokens caps the response length. Defaults to 8192.
	MaxTokens int64
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// ClaudeAgent is an Agent backed by the Anthropic Messages API.
type ClaudeAgent struct {
	name      string
	model     anthropic.Model
	system    string
	maxTokens int64
	client    anthropic.Client
}

// Verify ClaudeAgent implements Agent at compile time.
var _ Agent = (*ClaudeAgent)(nil)

// NewClaudeAgent creates a Claude-backed agent.
func NewClaudeAgent(cfg ClaudeConfig) (*ClaudeAgent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}

	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		// AWS Bedrock path
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		// Traditional API key path
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &ClaudeAgent{
		name:      cfg.Name,
		model:     model,
		system:    cfg.SystemPrompt,
		maxTokens: maxTokens,
		client:    anthropic.NewClient(opts...),
	}, nil
}

// Name returns the agent's identifier.
func (a *ClaudeAgent) Name() string {
	return a.name
}

// Run sends the conversation to the Messages API and returns the
// assistant's response with its token usage.
func (a *ClaudeAgent) Run(ctx context.Context, message string, actx *models.Context) (*models.Response, error) {
	messages := buildMessages(message, actx)

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  messages,
	}
	if a.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, translateAPIError(a.name, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	usage := models.NewUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return models.NewResponse(a.name, text.String(), usage), nil
}

// buildMessages converts the run context and current message into API
// message params. Prior turns come first, in history order. When the
// history already ends with the current message (strategies seed the
// task as a user message before the first turn), it is not appended
// again.
func buildMessages(message string, actx *models.Context) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	seen := false
	if actx != nil {
		for _, msg := range actx.History {
			block := anthropic.NewTextBlock(msg.Content)
			if msg.Role == models.RoleAssistant {
				messages = append(messages, anthropic.NewAssistantMessage(block))
			} else {
				messages = append(messages, anthropic.NewUserMessage(block))
			}
		}
		if n := len(actx.History); n > 0 {
			last := actx.History[n-1]
			seen = last.Role == models.RoleUser && last.Content == message
		}
	}
	if !seen {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))
	}
	return messages
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Might already be Bedrock format or a custom model.
	return model
}
