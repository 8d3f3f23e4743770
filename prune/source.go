// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package prune

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/residualeval/residual"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const summaryExt = ".avro"

// splitLocation separates a statistics location into the URL of its
// bucket and the key inside it. Local paths and file URLs open the
// parent directory as the bucket.
func splitLocation(location string) (bucketURL, key string, err error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: statistics location %s: %s",
			residual.ErrInvalidArgument, location, err.Error())
	}

	switch parsed.Scheme {
	case "":
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", "", err
		}

		if strings.HasSuffix(location, "/") {
			abs += "/"
		}
		parsed = &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

		fallthrough
	case "file":
		if strings.HasSuffix(parsed.Path, "/") {
			key = ""
		} else {
			key = path.Base(parsed.Path)
			parsed.Path = path.Dir(parsed.Path)
		}
	default:
		key = strings.TrimPrefix(parsed.Path, "/")
		parsed.Path = ""
	}

	return parsed.String(), key, nil
}

// OpenPartitions reads partition statistics from a location such as
// file:///data/stats.avro, s3://bucket/stats/ or gs://bucket/p.avro.
// A location ending in a slash reads every summary file under it.
func OpenPartitions(ctx context.Context, location string) (*residual.Schema, []Partition, error) {
	bucketURL, key, err := splitLocation(location)
	if err != nil {
		return nil, nil, err
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, nil, err
	}
	defer bucket.Close()

	return ReadBucket(ctx, bucket, key)
}

// ReadBucket reads the summary file at key, or every summary file
// below key when it is empty or ends in a slash. All files must carry
// the same schema.
func ReadBucket(ctx context.Context, bucket *blob.Bucket, key string) (*residual.Schema, []Partition, error) {
	if key != "" && !strings.HasSuffix(key, "/") {
		return readObject(ctx, bucket, key)
	}

	var (
		schema *residual.Schema
		parts  []Partition
	)

	iter := bucket.List(&blob.ListOptions{Prefix: key})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, nil, err
		}

		if obj.IsDir || !strings.HasSuffix(obj.Key, summaryExt) {
			continue
		}

		s, p, err := readObject(ctx, bucket, obj.Key)
		if err != nil {
			return nil, nil, err
		}

		if schema != nil && !schema.Equals(s) {
			return nil, nil, fmt.Errorf("%w: %s has a different schema than the files before it",
				residual.ErrInvalidSchema, obj.Key)
		}
		schema = s
		parts = append(parts, p...)
	}

	if schema == nil {
		return nil, nil, fmt.Errorf("%w: no partition summaries under '%s'", residual.ErrInvalidArgument, key)
	}

	return schema, parts, nil
}

func readObject(ctx context.Context, bucket *blob.Bucket, key string) (*residual.Schema, []Partition, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	s, parts, err := ReadPartitions(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", key, err)
	}

	return s, parts, nil
}

// WriteBucket writes partition statistics to key in the bucket.
func WriteBucket(ctx context.Context, bucket *blob.Bucket, key string, s *residual.Schema, parts []Partition) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return err
	}

	if err := WritePartitions(w, s, parts); err != nil {
		// canceling before Close discards the partial object
		cancel()
		w.Close()

		return err
	}

	return w.Close()
}
