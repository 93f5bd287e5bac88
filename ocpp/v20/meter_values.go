package v20

const MeterValuesFeatureName = "MeterValues"

type MeterValuesRequest struct {
	EvseId     int          `json:"evseId" validate:"gte=0"`
	MeterValue []MeterValue `json:"meterValue" validate:"required,min=1"`
}

type MeterValuesResponse struct {
}

func NewMeterValuesResponse() *MeterValuesResponse {
	return &MeterValuesResponse{}
}
