// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"time"

	"github.com/incidentwatch/incidentwatch/model"
)

// SyntheticExamples returns the built-in few-shot corpus used to seed the
// analysis model when no historical data is available yet.
func SyntheticExamples(now time.Time) []model.TrainingExample {
	return []model.TrainingExample{
		{
			PatternType: "log_error",
			Input:       `Logs of auth-service show errors: "Redis connection timeout after 5000ms"`,
			Output: `ROOT CAUSE: Connectivity problems with the Redis server
SYMPTOMS: Redis connection timeouts, authentication failures
IMPACT: Users cannot log in, the authentication service is unavailable
RECOMMENDATIONS:
1. Check Redis server availability and network configuration
2. Increase the Redis connection timeout
3. Add a retry mechanism for connections
4. Monitor Redis memory usage`,
			Services:  []string{"auth-service"},
			Severity:  model.SeverityHigh,
			CreatedAt: now,
		},
		{
			PatternType: "log_warning",
			Input:       `Logs of payment-service show warnings: "High response time detected: 4500ms for processPayment"`,
			Output: `ROOT CAUSE: High latency in payment processing
SYMPTOMS: Slow responses from payment-service, warnings in logs
IMPACT: Users experience delays during checkout, timeouts are possible
RECOMMENDATIONS:
1. Check load on the payments database
2. Optimize calls to external payment gateways
3. Consider caching frequently used data
4. Increase service resources if needed`,
			Services:  []string{"payment-service"},
			Severity:  model.SeverityMedium,
			CreatedAt: now,
		},
		{
			PatternType: "trace_latency",
			Input:       "Trace shows high latency between user-service and order-service: 2.3s against a 200ms baseline",
			Output: `ROOT CAUSE: High network latency between microservices
SYMPTOMS: Slow calls between user-service and order-service
IMPACT: Delays in order creation, poor user experience
RECOMMENDATIONS:
1. Check network connectivity between nodes
2. Reduce the size of transferred payloads
3. Consider gRPC instead of HTTP for internal communication
4. Add a circuit breaker for graceful degradation`,
			Services:  []string{"user-service", "order-service"},
			Severity:  model.SeverityHigh,
			CreatedAt: now,
		},
		{
			PatternType: "trace_error",
			Input:       "Trace contains a 500 error when order-service calls inventory-service",
			Output: `ROOT CAUSE: inventory-service is returning 500 errors
SYMPTOMS: Stock checks fail, orders are interrupted
IMPACT: Users cannot complete orders, lost sales
RECOMMENDATIONS:
1. Inspect inventory-service logs for exceptions
2. Verify the inventory database is reachable
3. Temporarily scale up inventory-service replicas
4. Implement a fallback for unavailability`,
			Services:  []string{"order-service", "inventory-service"},
			Severity:  model.SeverityCritical,
			CreatedAt: now,
		},
		{
			PatternType: "metric_anomaly",
			Input:       "Sharp CPU increase on nodes running order-service, from 30% to 95% within 5 minutes",
			Output: `ROOT CAUSE: Unexpected load growth or a resource leak
SYMPTOMS: High CPU usage, possible timeouts
IMPACT: order-service slows down, failures are possible
RECOMMENDATIONS:
1. Scale order-service immediately
2. Check for infinite loops or runaway recursion
3. Analyze logs for anomalous activity
4. Consider horizontal scaling`,
			Services:  []string{"order-service"},
			Severity:  model.SeverityCritical,
			CreatedAt: now,
		},
		{
			PatternType: "metric_memory",
			Input:       "Gradual memory growth of notification-service up to 85% over 2 hours",
			Output: `ROOT CAUSE: Possible memory leak or inefficient memory use
SYMPTOMS: Gradually growing memory usage, degrading performance
IMPACT: Risk of the OOM killer, service restarts
RECOMMENDATIONS:
1. Profile the application's memory usage
2. Check the code for memory leaks
3. Increase the pod memory limits
4. Configure memory-based autoscaling`,
			Services:  []string{"notification-service"},
			Severity:  model.SeverityMedium,
			CreatedAt: now,
		},
	}
}
