// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

// Package hash provides generic utilities for computing hashes.
// This package contains no domain-specific types and can be used by any package.
package hash

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"k8s.io/apimachinery/pkg/util/dump"
	"k8s.io/apimachinery/pkg/util/rand"
)

// ComputeHash computes a hash value from any object following the Kubernetes
// controller.ComputeHash algorithm: dump.ForHash gives a deterministic string
// representation, an optional collisionCount is mixed in, and the result is
// safe encoded to avoid bad words.
func ComputeHash(obj any, collisionCount *int32) string {
	hasher := fnv.New32a()

	hashableStr := dump.ForHash(obj)
	hasher.Write([]byte(hashableStr))

	if collisionCount != nil && *collisionCount >= 0 {
		collisionCountBytes := make([]byte, 8)
		binary.LittleEndian.PutUint32(collisionCountBytes, uint32(*collisionCount))
		hasher.Write(collisionCountBytes)
	}

	return rand.SafeEncodeString(fmt.Sprint(hasher.Sum32()))
}

// Equal returns true if two objects produce the same hash.
func Equal(obj1, obj2 any) bool {
	return ComputeHash(obj1, nil) == ComputeHash(obj2, nil)
}
