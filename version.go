// Package lintbox runs ament lint tools inside throwaway containers.
package lintbox

// Version is the lintbox release version.
const Version = "0.1.0"
