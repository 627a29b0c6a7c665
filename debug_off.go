//go:build !thashmap_debug

package thashmap

func assert(cond bool, msg string) {}
