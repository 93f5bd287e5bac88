package v16

const DataTransferFeatureName = "DataTransfer"

type DataTransferStatus string

const (
	DataTransferStatusAccepted         DataTransferStatus = "Accepted"
	DataTransferStatusRejected         DataTransferStatus = "Rejected"
	DataTransferStatusUnknownMessageId DataTransferStatus = "UnknownMessageId"
	DataTransferStatusUnknownVendorId  DataTransferStatus = "UnknownVendorId"
)

type DataTransferRequest struct {
	VendorId  string `json:"vendorId" validate:"required,max=255"`
	MessageId string `json:"messageId,omitempty" validate:"omitempty,max=50"`
	Data      string `json:"data,omitempty"`
}

type DataTransferResponse struct {
	Status DataTransferStatus `json:"status" validate:"required"`
	Data   string             `json:"data,omitempty"`
}

func NewDataTransferResponse(status DataTransferStatus) *DataTransferResponse {
	return &DataTransferResponse{Status: status}
}
