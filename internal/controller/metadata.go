// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/playbookrun/playbook-operator/internal/labels"
)

// This file contains the helper functions to get the operator specific metadata from the Kubernetes objects.

// GetSpecHash returns the spec hash recorded on the object.
func GetSpecHash(obj client.Object) string {
	return getAnnotationValueOrEmpty(obj, AnnotationKeySpecHash)
}

// IsManagedByController reports whether the object carries the managed-by label of this operator.
func IsManagedByController(obj client.Object) bool {
	return getLabelValueOrEmpty(obj, labels.LabelKeyManagedBy) == labels.LabelValueManagedBy
}

func getLabelValueOrEmpty(obj client.Object, labelKey string) string {
	if obj.GetLabels() == nil {
		return ""
	}
	return obj.GetLabels()[labelKey]
}

func getAnnotationValueOrEmpty(obj client.Object, annotationKey string) string {
	if obj.GetAnnotations() == nil {
		return ""
	}
	return obj.GetAnnotations()[annotationKey]
}
