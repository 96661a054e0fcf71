//go:build ovum_release

package memory

const assertionsEnabled = false
