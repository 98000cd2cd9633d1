// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// OwnerWatchHandler returns a map function that routes events of an owned object back to its
// controlling owner. Only a controller reference whose group and kind match ownerGVK is followed;
// objects without one produce no request. The owner is assumed to live in the object's namespace.
func OwnerWatchHandler(ownerGVK schema.GroupVersionKind) handler.MapFunc {
	return func(_ context.Context, obj client.Object) []reconcile.Request {
		ref := metav1.GetControllerOf(obj)
		if ref == nil {
			return nil
		}

		gv, err := schema.ParseGroupVersion(ref.APIVersion)
		if err != nil {
			return nil
		}
		if gv.Group != ownerGVK.Group || ref.Kind != ownerGVK.Kind {
			return nil
		}

		return []reconcile.Request{{
			NamespacedName: client.ObjectKey{
				Namespace: obj.GetNamespace(),
				Name:      ref.Name,
			},
		}}
	}
}
