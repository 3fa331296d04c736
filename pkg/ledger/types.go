package ledger

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// Status is the finalization state of a proposal as reported by the ledger.
type Status string

const (
	StatusProposed Status = "PROPOSED"
	StatusExecuted Status = "EXECUTED"
	StatusRejected Status = "REJECTED"
)

// ActivityProposal is a recycling claim awaiting validator quorum. It is
// owned by the ledger; this side only caches what the gateway returns.
type ActivityProposal struct {
	ID             int64       `json:"actividadId"`
	ProposerWallet string      `json:"usuarioWallet"`
	WeightKg       float64     `json:"pesoKg"`
	MaterialType   string      `json:"tipoMaterial"`
	EvidenceRef    string      `json:"evidenciaIPFS"`
	RewardAmount   json.Number `json:"tokensCalculados"`
	ApprovalCount  int         `json:"aprobaciones"`
	Executed       bool        `json:"ejecutada"`
	Rejected       bool        `json:"rechazada"`
	TxHash         string      `json:"transactionHash,omitempty"`
	BlockNumber    *int64      `json:"blockNumber,omitempty"`
}

// Status derives the proposal state from its flags.
func (p ActivityProposal) Status() Status {
	switch {
	case p.Executed:
		return StatusExecuted
	case p.Rejected:
		return StatusRejected
	}
	return StatusProposed
}

// Terminal reports whether the proposal was executed or rejected. No further
// approve/reject calls are meaningful against a terminal proposal.
func (p ActivityProposal) Terminal() bool {
	return p.Executed || p.Rejected
}

// Credential is the validator's signing credential. It is sent to the
// gateway and never printed or logged.
type Credential string

// String redacts the value.
func (Credential) String() string { return "[REDACTED]" }

// LogValue redacts the value in slog output.
func (Credential) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

// ApproveRequest is the body of POST /blockchain/actividades/{id}/aprobar.
type ApproveRequest struct {
	ValidatorWallet     string     `json:"validadorWallet"`
	ValidatorCredential Credential `json:"validadorPrivateKey"`
}

// RejectRequest is the body of POST /blockchain/actividades/{id}/rechazar.
type RejectRequest struct {
	ValidatorWallet     string     `json:"validadorWallet"`
	ValidatorCredential Credential `json:"validadorPrivateKey"`
	Reason              string     `json:"razon"`
}

// Result is the gateway's answer to an approve or reject call. Known fields
// are lifted out; Raw keeps the body as received.
type Result struct {
	Message         string `json:"message,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     *int64 `json:"blockNumber,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func decodeResult(raw []byte) *Result {
	res := &Result{Raw: json.RawMessage(bytes.Clone(raw))}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return res
	}
	switch trimmed[0] {
	case '{':
		_ = json.Unmarshal(trimmed, res)
	case '"':
		_ = json.Unmarshal(trimmed, &res.Message)
	default:
		res.Message = string(trimmed)
	}
	return res
}

// Balance is the token balance of a wallet. Amount keeps the number exactly
// as the gateway sent it.
type Balance struct {
	Amount json.Number `json:"balance"`
}
