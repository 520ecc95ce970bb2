package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/copyleftdev/atsp/internal/errors"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type runIDParams struct {
	RunID string `json:"run_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if limit := s.cfg.HTTP.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var (
		result interface{}
		err    error
	)
	switch request.Method {
	case "search.start":
		var req SolveRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.start(req)
		}
	case "search.status":
		var p runIDParams
		if err = decodeRunID(request.Params, &p); err == nil {
			result, err = s.status(r.Context(), p.RunID)
		}
	case "search.cancel":
		var p runIDParams
		if err = decodeRunID(request.Params, &p); err == nil {
			if err = s.cancelRun(r.Context(), p.RunID); err == nil {
				result = map[string]string{"status": "cancellation requested"}
			}
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := rpcServerError
		if status := errors.StatusCode(err); status >= 400 && status < 500 {
			code = rpcInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams accepts either a params object or a one-element array
// holding it.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errors.E(component, "rpc", errors.ErrMalformed, "missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return errors.E(component, "rpc", errors.ErrMalformed, "invalid parameter format: %v", err)
		}
		if len(list) != 1 {
			return errors.E(component, "rpc", errors.ErrMalformed, "expected exactly one parameter object")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.E(component, "rpc", errors.ErrMalformed, "invalid parameter format: %v", err)
	}
	return nil
}

func decodeRunID(raw json.RawMessage, p *runIDParams) error {
	if err := decodeParams(raw, p); err != nil {
		return err
	}
	if p.RunID == "" {
		return errors.E(component, "rpc", errors.ErrMalformed, "run_id is required")
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
