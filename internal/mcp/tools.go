package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/dice-engine/internal/dice"
	"github.com/louisbranch/dice-engine/internal/engine"
)

// RollInput represents the MCP tool input for rolling an expression.
type RollInput struct {
	Expression string `json:"expression" jsonschema:"dice expression to roll, e.g. 4d6dl1+2"`
}

// RollDie represents a single die in a roll breakdown.
type RollDie struct {
	Value    int  `json:"value" jsonschema:"face shown by the die"`
	Kept     bool `json:"kept" jsonschema:"whether the die counts toward the total"`
	Exploded bool `json:"exploded,omitempty" jsonschema:"whether the die triggered an explosion"`
	Rerolled bool `json:"rerolled,omitempty" jsonschema:"whether the die was rerolled away"`
}

// RollTerm represents the results for a single term of the expression.
type RollTerm struct {
	Dice     []RollDie `json:"dice,omitempty" jsonschema:"individual dice for the term"`
	Subtotal int       `json:"subtotal" jsonschema:"value the term contributed"`
}

// RollResult represents the MCP tool output for a roll.
type RollResult struct {
	ID         string     `json:"id" jsonschema:"unique roll identifier"`
	Expression string     `json:"expression" jsonschema:"expression as submitted"`
	Total      int        `json:"total" jsonschema:"final value of the roll"`
	Terms      []RollTerm `json:"terms" jsonschema:"per-term breakdown"`
	Timestamp  string     `json:"timestamp" jsonschema:"roll time in RFC 3339 format"`
}

// RollBatchInput represents the MCP tool input for a batch of rolls.
type RollBatchInput struct {
	Expression string `json:"expression" jsonschema:"dice expression to roll"`
	Count      int    `json:"count" jsonschema:"number of independent rolls"`
}

// RollBatchResult represents the MCP tool output for a batch of rolls.
type RollBatchResult struct {
	Rolls []RollResult `json:"rolls" jsonschema:"results in roll order"`
}

// ValidateFairnessInput represents the MCP tool input for a fairness
// check.
type ValidateFairnessInput struct {
	Sides      int `json:"sides" jsonschema:"die shape to sample"`
	SampleSize int `json:"sample_size" jsonschema:"number of draws to sample"`
}

// ValidateFairnessResult represents the MCP tool output for a fairness
// check.
type ValidateFairnessResult struct {
	Sides            int     `json:"sides" jsonschema:"die shape sampled"`
	SampleSize       int     `json:"sample_size" jsonschema:"number of draws sampled"`
	ChiSquare        float64 `json:"chi_square" jsonschema:"chi-square statistic"`
	DegreesOfFreedom int     `json:"degrees_of_freedom" jsonschema:"degrees of freedom for the test"`
	PValue           float64 `json:"p_value" jsonschema:"probability of a statistic at least this extreme"`
	Alpha            float64 `json:"alpha" jsonschema:"significance level used"`
	Passed           bool    `json:"passed" jsonschema:"whether the source passed the check"`
}

// RollTool defines the MCP tool schema for rolling an expression.
func RollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll",
		Description: "Rolls a dice expression and returns the full breakdown",
	}
}

// RollBatchTool defines the MCP tool schema for batch rolls.
func RollBatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_batch",
		Description: "Rolls a dice expression multiple times",
	}
}

// ValidateFairnessTool defines the MCP tool schema for fairness checks.
func ValidateFairnessTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_fairness",
		Description: "Runs a chi-square fairness check against the random source",
	}
}

// RollHandler evaluates a single expression through the engine.
func RollHandler(eng *engine.Engine) mcp.ToolHandlerFor[RollInput, RollResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollInput) (*mcp.CallToolResult, RollResult, error) {
		result, err := eng.Roll(ctx, input.Expression)
		if err != nil {
			return nil, RollResult{}, fmt.Errorf("roll failed: %w", err)
		}
		return nil, toRollResult(result), nil
	}
}

// RollBatchHandler evaluates an expression count times through the
// engine.
func RollBatchHandler(eng *engine.Engine) mcp.ToolHandlerFor[RollBatchInput, RollBatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollBatchInput) (*mcp.CallToolResult, RollBatchResult, error) {
		results, err := eng.RollBatch(ctx, input.Expression, input.Count)
		if err != nil {
			return nil, RollBatchResult{}, fmt.Errorf("batch roll failed: %w", err)
		}
		rolls := make([]RollResult, 0, len(results))
		for _, result := range results {
			rolls = append(rolls, toRollResult(result))
		}
		return nil, RollBatchResult{Rolls: rolls}, nil
	}
}

// ValidateFairnessHandler runs a fairness check against the engine's
// source.
func ValidateFairnessHandler(eng *engine.Engine) mcp.ToolHandlerFor[ValidateFairnessInput, ValidateFairnessResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ValidateFairnessInput) (*mcp.CallToolResult, ValidateFairnessResult, error) {
		report, err := eng.ValidateFairness(input.Sides, input.SampleSize)
		if err != nil {
			return nil, ValidateFairnessResult{}, fmt.Errorf("fairness check failed: %w", err)
		}
		return nil, ValidateFairnessResult{
			Sides:            report.Sides,
			SampleSize:       report.SampleSize,
			ChiSquare:        report.ChiSquare,
			DegreesOfFreedom: report.DegreesOfFreedom,
			PValue:           report.PValue,
			Alpha:            report.Alpha,
			Passed:           report.Passed,
		}, nil
	}
}

func toRollResult(result dice.RollResult) RollResult {
	terms := make([]RollTerm, 0, len(result.Terms))
	for _, term := range result.Terms {
		out := RollTerm{Subtotal: term.Subtotal}
		for _, die := range term.Dice {
			out.Dice = append(out.Dice, RollDie{
				Value:    die.Value,
				Kept:     die.Kept,
				Exploded: die.Exploded,
				Rerolled: die.Rerolled,
			})
		}
		terms = append(terms, out)
	}
	return RollResult{
		ID:         result.ID,
		Expression: result.Expression,
		Total:      result.Total,
		Terms:      terms,
		Timestamp:  result.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
