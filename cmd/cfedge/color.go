// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import "github.com/muesli/termenv"

var (
	acceptedAddressStyle = termenv.Style{}.Foreground(termenv.ANSIGreen)
	latencyStyle         = termenv.Style{}.Foreground(termenv.ANSIYellow)
	noneAcceptedStyle    = termenv.Style{}.Foreground(termenv.ANSIRed)
)

var operatorNameStyle = termenv.Style{}.Bold()
