// Package integrationtests runs complete grids through the app with real
// shell jobs in temporary work roots.
package integrationtests
