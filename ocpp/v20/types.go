package v20

import "ocppcs/types"

// Shared shapes of the 2.x dialects. Tokens and connectors travel as
// structured objects instead of the bare values of 1.6.

type IdToken struct {
	IdToken string `json:"idToken" validate:"required,max=36"`
	Type    string `json:"type,omitempty"`
}

type IdTokenInfo struct {
	Status              string          `json:"status" validate:"required"`
	CacheExpiryDateTime *types.DateTime `json:"cacheExpiryDateTime,omitempty"`
	GroupIdToken        *IdToken        `json:"groupIdToken,omitempty"`
}

// NewIdTokenInfo renders the neutral authorization outcome in 2.x shape. The
// status names of both generations coincide for every outcome this server
// produces.
func NewIdTokenInfo(info *types.IdTagInfo) *IdTokenInfo {
	out := &IdTokenInfo{Status: string(info.Status)}
	if info.ParentIdTag != "" {
		out.GroupIdToken = &IdToken{IdToken: info.ParentIdTag}
	}
	if info.ExpiryDate != nil {
		out.CacheExpiryDateTime = info.ExpiryDate
	}
	return out
}

type EVSE struct {
	Id          int `json:"id" validate:"gt=0"`
	ConnectorId int `json:"connectorId,omitempty"`
}

// connector picks the most specific connector address the station gave.
func (e *EVSE) connector() int {
	if e == nil {
		return 0
	}
	if e.ConnectorId > 0 {
		return e.ConnectorId
	}
	return e.Id
}

type UnitOfMeasure struct {
	Unit       string `json:"unit,omitempty"`
	Multiplier int    `json:"multiplier,omitempty"`
}

type SampledValue struct {
	Value         float64        `json:"value"`
	Context       string         `json:"context,omitempty"`
	Measurand     string         `json:"measurand,omitempty"`
	Phase         string         `json:"phase,omitempty"`
	Location      string         `json:"location,omitempty"`
	UnitOfMeasure *UnitOfMeasure `json:"unitOfMeasure,omitempty"`
}

type MeterValue struct {
	Timestamp    *types.DateTime `json:"timestamp" validate:"required"`
	SampledValue []SampledValue  `json:"sampledValue" validate:"required,min=1"`
}
