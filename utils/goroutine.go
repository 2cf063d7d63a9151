package utils

import (
	"log"
	"runtime/debug"
)

// SafeGo 启动一个带 panic 保护的 goroutine
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SafeGo] goroutine panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
