// Package narration turns an untrusted, free-form language-model reply
// into validated, typed state-change instructions.
//
// The producer is external and occasionally malformed, so the parser is
// maximally permissive about narrative quality and maximally strict about
// anything that will mutate authoritative game state: a reply with no
// structured block is plain narrative, a malformed structured block
// degrades to plain narrative, and inside a parsed block each optional
// field is validated independently — invalid sub-fields are dropped and
// recorded, never fatal for the reply as a whole.
package narration

import (
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/KirkDiggler/gamemaster-api/internal/dice"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

// ErrMissingNarrative is returned when a reply, structured or not, carries
// no usable narrative text. The pipeline treats it as a signal to fall
// back to the raw reply rather than failing the turn.
var ErrMissingNarrative = stderrors.New("narration: reply has no narrative text")

// RollRequest asks a player to roll before the story can continue
type RollRequest struct {
	Reason string `json:"reason,omitempty"`
	Dice   string `json:"dice"`
	Target string `json:"target,omitempty"`
}

// FieldIssue records a sub-field that was dropped during validation
type FieldIssue struct {
	Field string
	Err   error
}

// Result is a fully validated narration reply
type Result struct {
	// Narrative is the story text; always present on a successful parse
	Narrative string

	// StateChanges are the typed mutations the narration proposes
	StateChanges []entities.StateChange

	// NPCs introduced or updated by this narration
	NPCs []entities.NPC

	// RequiresRoll is set when the narration pauses for a dice roll
	RequiresRoll *RollRequest

	// Location is a scene change, empty when the scene is unchanged
	Location string

	// Structured reports whether a structured block was found and parsed
	Structured bool

	// Issues lists every sub-field that was dropped, for logging
	Issues []FieldIssue
}

// Raw wire shape. Every field except narrative is optional, and each is
// held as raw JSON so one malformed field cannot poison the others.
type rawReply struct {
	Narrative    json.RawMessage `json:"narrative"`
	StateChanges json.RawMessage `json:"state_changes"`
	NPCs         json.RawMessage `json:"npcs"`
	RequiresRoll json.RawMessage `json:"requires_roll"`
	Location     json.RawMessage `json:"location"`
}

type rawStateChange struct {
	Kind        string   `json:"kind"`
	Target      string   `json:"target"`
	Value       *float64 `json:"value"`
	Detail      string   `json:"detail"`
	Description string   `json:"description"`
}

type rawNPC struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Disposition string `json:"disposition"`
}

// Parse validates a raw language-model reply.
//
// Degradation rules:
//   - empty input: ErrMissingNarrative
//   - no structured block, or a block that is not valid JSON: the whole
//     input is narrative, no state changes, no error
//   - structured block with empty narrative: ErrMissingNarrative
//   - structured block with invalid sub-fields: sub-fields dropped and
//     recorded in Result.Issues, narrative still returned
func Parse(raw string) (*Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.WrapWithCode(ErrMissingNarrative, errors.CodeInvalidArgument,
			"reply is empty")
	}

	block, found := extractBlock(trimmed)
	if !found {
		return &Result{Narrative: trimmed}, nil
	}

	var reply rawReply
	if err := json.Unmarshal([]byte(block), &reply); err != nil {
		// Not an object we understand; treat the whole reply as narrative
		return &Result{Narrative: trimmed}, nil
	}

	result := &Result{Structured: true}

	var narrative string
	if err := json.Unmarshal(reply.Narrative, &narrative); err != nil || strings.TrimSpace(narrative) == "" {
		return nil, errors.WrapWithCode(ErrMissingNarrative, errors.CodeInvalidArgument,
			"structured reply has no narrative text")
	}
	result.Narrative = strings.TrimSpace(narrative)

	parseStateChanges(reply.StateChanges, result)
	parseNPCs(reply.NPCs, result)
	parseRollRequest(reply.RequiresRoll, result)
	parseLocation(reply.Location, result)

	return result, nil
}

func (r *Result) drop(field string, err error) {
	r.Issues = append(r.Issues, FieldIssue{Field: field, Err: err})
}

func parseStateChanges(raw json.RawMessage, result *Result) {
	if len(raw) == 0 {
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		result.drop("state_changes", errors.InvalidArgument("state_changes is not an array"))
		return
	}

	for i, item := range items {
		var change rawStateChange
		if err := json.Unmarshal(item, &change); err != nil {
			result.drop(changeField(i, ""), errors.InvalidArgument("state change is not an object"))
			continue
		}

		kind := entities.StateChangeKind(strings.ToLower(strings.TrimSpace(change.Kind)))
		if !kind.IsValid() {
			// Unknown kinds are narrative-only intentions, not errors
			kind = entities.StateChangeCustom
		}

		value := int32(0)
		if change.Value != nil {
			value = int32(*change.Value)
		}

		if (kind == entities.StateChangeDamage || kind == entities.StateChangeHeal) && value < 0 {
			result.drop(changeField(i, "value"),
				errors.InvalidArgumentf("%s amount must not be negative", kind))
			continue
		}
		if (kind == entities.StateChangeDamage || kind == entities.StateChangeHeal) && change.Target == "" {
			result.drop(changeField(i, "target"),
				errors.InvalidArgumentf("%s requires a target", kind))
			continue
		}
		if (kind == entities.StateChangeConditionAdd || kind == entities.StateChangeConditionRemove) && change.Detail == "" {
			result.drop(changeField(i, "detail"),
				errors.InvalidArgument("condition changes require a condition name"))
			continue
		}

		result.StateChanges = append(result.StateChanges, entities.StateChange{
			Kind:        kind,
			Target:      strings.TrimSpace(change.Target),
			Value:       value,
			Detail:      strings.TrimSpace(change.Detail),
			Description: strings.TrimSpace(change.Description),
		})
	}
}

func changeField(index int, sub string) string {
	field := "state_changes[" + strconv.Itoa(index) + "]"
	if sub != "" {
		field += "." + sub
	}
	return field
}

func parseNPCs(raw json.RawMessage, result *Result) {
	if len(raw) == 0 {
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		result.drop("npcs", errors.InvalidArgument("npcs is not an array"))
		return
	}

	for _, item := range items {
		var npc rawNPC
		if err := json.Unmarshal(item, &npc); err != nil {
			result.drop("npcs", errors.InvalidArgument("npc is not an object"))
			continue
		}
		if strings.TrimSpace(npc.Name) == "" {
			result.drop("npcs", errors.InvalidArgument("npc has no name"))
			continue
		}

		disposition := entities.Disposition(strings.ToLower(strings.TrimSpace(npc.Disposition)))
		if !disposition.IsValid() {
			disposition = entities.DispositionNeutral
		}

		result.NPCs = append(result.NPCs, entities.NPC{
			Name:        strings.TrimSpace(npc.Name),
			Description: strings.TrimSpace(npc.Description),
			Disposition: disposition,
		})
	}
}

func parseRollRequest(raw json.RawMessage, result *Result) {
	if len(raw) == 0 {
		return
	}

	var req RollRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		result.drop("requires_roll", errors.InvalidArgument("requires_roll is not an object"))
		return
	}

	// Dice notation is the one sub-field that hard-fails: a roll request
	// the engine cannot execute must not reach the table.
	if _, _, _, err := dice.Parse(req.Dice); err != nil {
		result.drop("requires_roll.dice", err)
		return
	}

	result.RequiresRoll = &req
}

func parseLocation(raw json.RawMessage, result *Result) {
	if len(raw) == 0 {
		return
	}

	var location string
	if err := json.Unmarshal(raw, &location); err != nil {
		result.drop("location", errors.InvalidArgument("location is not a string"))
		return
	}
	result.Location = strings.TrimSpace(location)
}
