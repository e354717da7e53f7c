// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dcn

import (
	"os"
)

// AppendFile adds record to the end of the file at path, creating it if
// needed.
func AppendFile(path string, record *Record) error {
	return writeFile(path, record, os.O_APPEND)
}

// ReplaceFile overwrites the file at path with record.
func ReplaceFile(path string, record *Record) error {
	return writeFile(path, record, os.O_TRUNC)
}

func writeFile(path string, record *Record, mode int) error {
	data, err := Marshal(record)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

// LoadFile decodes every record in the file at path. See DecodeAll.
func LoadFile(path string) ([]*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return DecodeAll(string(data))
}
