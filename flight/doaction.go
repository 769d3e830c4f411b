package flight

import (
	"encoding/json"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/internal/recovery"
)

// Action types served by DoAction.
const (
	ActionListFilterTypes = "list_filter_types"
	ActionValidateFilters = "validate_filters"
)

var actions = []*flight.ActionType{
	{
		Type:        ActionListFilterTypes,
		Description: "Lists the recognized filter types as a JSON array",
	},
	{
		Type:        ActionValidateFilters,
		Description: "Validates a filter command (MessagePack or JSON) and reports issues as JSON",
	},
}

// ValidationResult is the JSON body returned by the validate_filters action.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Filters int            `json:"filters"`
	Issues  []filter.Issue `json:"issues"`
}

// DoAction executes server actions.
// This RPC supports:
//   - list_filter_types: the recognized filter types
//   - validate_filters: structural checks of a filter command
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	s.logger.Info("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
		"trace_id", TraceIDFromContext(stream.Context()),
	)

	return recovery.RecoverToError(s.logger, "DoAction "+action.GetType(), func() error {
		switch action.GetType() {
		case ActionListFilterTypes:
			return s.handleListFilterTypes(stream)
		case ActionValidateFilters:
			return s.handleValidateFilters(action, stream)
		default:
			return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
		}
	})
}

// ListActions lists the actions served by DoAction.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, a := range actions {
		if err := stream.Send(a); err != nil {
			return status.Errorf(codes.Internal, "failed to send action: %v", err)
		}
	}
	return nil
}

func (s *Server) handleListFilterTypes(stream flight.FlightService_DoActionServer) error {
	body, err := json.Marshal(filter.Kinds())
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode filter types: %v", err)
	}
	return sendResult(stream, body)
}

// handleValidateFilters checks a filter command.
//
// Request format (MessagePack or JSON), same as the DoExchange command:
//
//	{
//	  "filters": [{"field": "created", "type": "dateRange", "value": "decade"}]
//	}
//
// Response format (JSON):
//
//	{"valid": false, "filters": 1, "issues": [{"path": "0", ...}]}
func (s *Server) handleValidateFilters(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	cmd, err := DecodeCommand(action.GetBody())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid filter command: %v", err)
	}

	issues := filter.Validate(cmd.FilterSet())
	if issues == nil {
		issues = []filter.Issue{}
	}
	s.logger.Debug("Validated filters",
		"filters", len(cmd.Filters),
		"issues", len(issues),
	)

	body, err := json.Marshal(ValidationResult{
		Valid:   len(issues) == 0,
		Filters: len(cmd.Filters),
		Issues:  issues,
	})
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	return sendResult(stream, body)
}

func sendResult(stream flight.FlightService_DoActionServer, body []byte) error {
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}
