package metrics

import (
	"strconv"

	"github.com/marmos91/someipd/internal/wire"
)

func serviceIDLabel(serviceID uint16) string {
	return "0x" + strconv.FormatUint(uint64(serviceID), 16)
}

func returnCodeLabel(code uint8) string {
	switch code {
	case wire.ReturnCodeOK:
		return "ok"
	case wire.ReturnCodeNotOK:
		return "not_ok"
	case wire.ReturnCodeUnknownService:
		return "unknown_service"
	case wire.ReturnCodeUnknownMethod:
		return "unknown_method"
	case wire.ReturnCodeNotReady:
		return "not_ready"
	case wire.ReturnCodeNotReachable:
		return "not_reachable"
	case wire.ReturnCodeTimeout:
		return "timeout"
	case wire.ReturnCodeWrongProtocolVer:
		return "wrong_protocol_version"
	case wire.ReturnCodeWrongInterfaceVer:
		return "wrong_interface_version"
	case wire.ReturnCodeMalformedMessage:
		return "malformed_message"
	case wire.ReturnCodeWrongMessageType:
		return "wrong_message_type"
	default:
		return "unknown"
	}
}
