// Package viz renders runs for the terminal: lipgloss panels and tables for
// statistics and comparisons, and asciigraph plots of stored trajectories
// and convergence sweeps.
package viz
