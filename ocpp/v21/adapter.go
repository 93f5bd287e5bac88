package v21

import (
	"ocppcs/internal"
	"ocppcs/ocpp"
	"ocppcs/ocpp/v20"
)

// The 2.1 dialect keeps the frame shape and every feature this server
// implements wire compatible with 2.0.1; only the negotiated subprotocol and
// the reported version differ. The 2.1 additions (DER control, battery swap)
// are answered NotSupported by the shared adapter's fallthrough.

type Adapter = v20.Adapter

func NewAdapter(handler *ocpp.SystemHandler, logger internal.LogHandler) *Adapter {
	return v20.NewAdapter21(handler, logger)
}
