//go:build !linux

package main

import (
	"errors"

	"github.com/Moonlight-Companies/gologger/logger"
)

func openProcess(pid int, remote uintptr, size int, log *logger.Logger) (image, error) {
	return nil, errors.New("--pid is only supported on linux")
}
