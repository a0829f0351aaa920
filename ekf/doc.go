// Package ekf implements the altitude estimator: the closed-form two-sensor
// Kalman gain for barometer + GPS fusion, a one-state altitude filter built
// on it, a general matrix Extended Kalman Filter and redundant-sensor voting.
package ekf
