package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "server",
	Name:      "connections_active",
	Help:      "Number of active ws connections",
})

func ObserveConnections(count int) {
	connectionsGauge.Set(float64(count))
}

var transactionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "transaction_count",
	Help:      "Total number of transactions.",
}, []string{"charge_point_id"})

func CountTransaction(chargePointId string) {
	if len(chargePointId) == 0 {
		return
	}
	transactionCounter.With(prometheus.Labels{"charge_point_id": chargePointId}).Inc()
}

var energyCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "consumed_energy",
	Help:      "Consumed energy in kWh.",
}, []string{"charge_point_id"})

func CountConsumedEnergy(chargePointId string, energy float64) {
	if len(chargePointId) == 0 || energy <= 0 {
		return
	}
	energyCounter.With(prometheus.Labels{"charge_point_id": chargePointId}).Add(energy)
}

var powerRateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ocpp",
	Name:      "current_power_rate",
	Help:      "Power rate on current transactions.",
}, []string{"charge_point_id", "connector_id"})

func ObservePowerRate(chargePointId, connectorId string, power float64) {
	if len(chargePointId) == 0 {
		return
	}
	powerRateGauge.With(
		prometheus.Labels{
			"charge_point_id": chargePointId,
			"connector_id":    connectorId,
		}).Set(power)
}

var errorCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "vendor_error_count",
	Help:      "Total number of errors by vendor code.",
}, []string{"charge_point_id", "code"})

func ObserveError(chargePointId, code string) {
	if len(chargePointId) == 0 || len(code) == 0 {
		return
	}
	errorCounts.With(prometheus.Labels{"charge_point_id": chargePointId, "code": code}).Inc()
}
