// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

// PresentError renders err as one line for the terminal. Credentials in URLs
// and DSNs are masked. Context words, when given, lead the line:
// PresentError(err, "opening", "out.csv") gives "opening out.csv: <err>".
func PresentError(err error, context ...any) string {
	if err == nil {
		return ""
	}
	msg := Mask(err.Error())
	if len(context) == 0 {
		return msg
	}
	return Mask(join(context)) + ": " + msg
}
