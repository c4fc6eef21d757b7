// Copyright 2025 The respcore Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resp

import "github.com/pkg/errors"

// ProtocolError reports a syntactic violation of the RESP wire format: an
// unexpected byte, a missing CRLF terminator, or array nesting more than
// nine levels deep. It carries no recovery information — RESP has no
// sync markers, so a Reader that returns a ProtocolError is no longer
// reusable; the caller is expected to tear it down and reconnect.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string { return e.msg }

func newProtocolError(format string, args ...any) error {
	return errors.Wrap(&ProtocolError{msg: errors.Errorf(format, args...).Error()}, "resp: protocol error")
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
