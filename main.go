// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/buildingid/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
