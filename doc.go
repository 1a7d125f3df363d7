// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package glossary converts dictionary files between formats.
//
// A conversion reads records from an input file through a chain of filters
// and writes them to an output file. Records are either streamed directly
// from the reader to the writer or loaded into a record store first, which
// is required when the output format is sorted:
//  1. Reading: the input format is detected from its name, extension or
//     header. Compressed inputs are decompressed into a temporary directory
//     unless the format reads the compression itself.
//  2. Sorting: the store is sorted with the sort key the output format
//     requires, or the one the user chose. Large glossaries can be sorted
//     in an on-disk SQLite store.
//  3. Writing: records are pushed to the output format's writer one at a
//     time. The output can be compressed afterwards.
//
// Temporary files are removed when the conversion finishes or fails, unless
// the "cleanup" configuration value is false.
//
// Formats are provided by the packages under formats/. Sort keys are
// provided by the sortkey package.
package glossary
