package ui

import "fmt"

func Success(msg string) {
	fmt.Println("✅", msg)
}

func Info(msg string) {
	fmt.Println("ℹ️", msg)
}

func Warn(msg string) {
	fmt.Println("⚠️ ", msg)
}

func Fail(msg string) {
	fmt.Println("❌", msg)
}
