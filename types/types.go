package types

// Subprotocol names offered during the websocket handshake. The negotiated
// subprotocol fixes the dialect for the whole connection.
const (
	SubProtocol16 = "ocpp1.6"
	SubProtocol20 = "ocpp2.0.1"
	SubProtocol21 = "ocpp2.1"
)

type ProtocolVersion string

const (
	ProtocolVersion16 ProtocolVersion = "1.6"
	ProtocolVersion20 ProtocolVersion = "2.0"
	ProtocolVersion21 ProtocolVersion = "2.1"
)

// VersionFromSubProtocol maps a negotiated websocket subprotocol to a dialect.
// An empty or unknown subprotocol falls back to 1.6, which is what most field
// hardware still speaks.
func VersionFromSubProtocol(proto string) ProtocolVersion {
	switch proto {
	case SubProtocol20:
		return ProtocolVersion20
	case SubProtocol21:
		return ProtocolVersion21
	default:
		return ProtocolVersion16
	}
}

type AuthorizationStatus string

const (
	AuthorizationStatusAccepted     AuthorizationStatus = "Accepted"
	AuthorizationStatusBlocked      AuthorizationStatus = "Blocked"
	AuthorizationStatusExpired      AuthorizationStatus = "Expired"
	AuthorizationStatusInvalid      AuthorizationStatus = "Invalid"
	AuthorizationStatusConcurrentTx AuthorizationStatus = "ConcurrentTx"
)

type IdTagInfo struct {
	ExpiryDate  *DateTime           `json:"expiryDate,omitempty"`
	ParentIdTag string              `json:"parentIdTag,omitempty"`
	Status      AuthorizationStatus `json:"status"`
}

func NewIdTagInfo(status AuthorizationStatus) *IdTagInfo {
	return &IdTagInfo{Status: status}
}

// ConnectorStatus is the version-neutral connector state kept in the online
// map and in the persisted store. Each dialect maps its own status
// enumeration onto this one.
type ConnectorStatus string

const (
	ConnectorStatusAvailable   ConnectorStatus = "Available"
	ConnectorStatusOccupied    ConnectorStatus = "Occupied"
	ConnectorStatusUnavailable ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted     ConnectorStatus = "Faulted"
	ConnectorStatusUndefined   ConnectorStatus = "Undefined"
)

type ReadingContext string
type ValueFormat string
type Measurand string
type Phase string
type Location string
type UnitOfMeasure string

const (
	ReadingContextInterruptionBegin     ReadingContext = "Interruption.Begin"
	ReadingContextInterruptionEnd       ReadingContext = "Interruption.End"
	ReadingContextOther                 ReadingContext = "Other"
	ReadingContextSampleClock           ReadingContext = "Sample.Clock"
	ReadingContextSamplePeriodic        ReadingContext = "Sample.Periodic"
	ReadingContextTransactionBegin      ReadingContext = "Transaction.Begin"
	ReadingContextTransactionEnd        ReadingContext = "Transaction.End"
	ReadingContextTrigger               ReadingContext = "Trigger"
	ValueFormatRaw                      ValueFormat    = "Raw"
	ValueFormatSignedData               ValueFormat    = "SignedData"
	MeasurandCurrentImport              Measurand      = "Current.Import"
	MeasurandCurrentOffered             Measurand      = "Current.Offered"
	MeasurandEnergyActiveExportRegister Measurand      = "Energy.Active.Export.Register"
	MeasurandEnergyActiveImportRegister Measurand      = "Energy.Active.Import.Register"
	MeasurandEnergyActiveImportInterval Measurand      = "Energy.Active.Import.Interval"
	MeasurandPowerActiveExport          Measurand      = "Power.Active.Export"
	MeasurandPowerActiveImport          Measurand      = "Power.Active.Import"
	MeasurandPowerOffered               Measurand      = "Power.Offered"
	MeasurandSoC                        Measurand      = "SoC"
	MeasurandTemperature                Measurand      = "Temperature"
	MeasurandVoltage                    Measurand      = "Voltage"
	PhaseL1                             Phase          = "L1"
	PhaseL2                             Phase          = "L2"
	PhaseL3                             Phase          = "L3"
	LocationBody                        Location       = "Body"
	LocationCable                       Location       = "Cable"
	LocationEV                          Location       = "EV"
	LocationInlet                       Location       = "Inlet"
	LocationOutlet                      Location       = "Outlet"
	UnitOfMeasureWh                     UnitOfMeasure  = "Wh"
	UnitOfMeasureKWh                    UnitOfMeasure  = "kWh"
	UnitOfMeasureVarh                   UnitOfMeasure  = "varh"
	UnitOfMeasureKvarh                  UnitOfMeasure  = "kvarh"
	UnitOfMeasureW                      UnitOfMeasure  = "W"
	UnitOfMeasureKW                     UnitOfMeasure  = "kW"
	UnitOfMeasureVA                     UnitOfMeasure  = "VA"
	UnitOfMeasureKVA                    UnitOfMeasure  = "kVA"
	UnitOfMeasureVar                    UnitOfMeasure  = "var"
	UnitOfMeasureKvar                   UnitOfMeasure  = "kvar"
	UnitOfMeasureA                      UnitOfMeasure  = "A"
	UnitOfMeasureV                      UnitOfMeasure  = "V"
	UnitOfMeasureCelsius                UnitOfMeasure  = "Celsius"
	UnitOfMeasurePercent                UnitOfMeasure  = "Percent"
)

type SampledValue struct {
	Value     string         `json:"value"`
	Context   ReadingContext `json:"context,omitempty"`
	Format    ValueFormat    `json:"format,omitempty"`
	Measurand Measurand      `json:"measurand,omitempty"`
	Phase     Phase          `json:"phase,omitempty"`
	Location  Location       `json:"location,omitempty"`
	Unit      UnitOfMeasure  `json:"unit,omitempty"`
}

type MeterValue struct {
	Timestamp    *DateTime      `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

type RemoteStartStopStatus string

const (
	RemoteStartStopStatusAccepted RemoteStartStopStatus = "Accepted"
	RemoteStartStopStatusRejected RemoteStartStopStatus = "Rejected"
)
