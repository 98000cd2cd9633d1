// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookrun

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/internal/controller"
)

var (
	jobResource         = schema.GroupResource{Group: "batch", Resource: "jobs"}
	playbookRunResource = schema.GroupResource{Group: "playbookrun.dev", Resource: "playbookruns"}
)

// countingCreates counts Job creations that reach the fake API server.
func countingCreates(counter *atomic.Int32) *interceptor.Funcs {
	return &interceptor.Funcs{
		Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
			if _, ok := obj.(*batchv1.Job); ok {
				counter.Add(1)
			}
			return c.Create(ctx, obj, opts...)
		},
	}
}

func getRun(ctx context.Context, c client.Client, run *playbookrunv1alpha1.PlaybookRun) *playbookrunv1alpha1.PlaybookRun {
	current := &playbookrunv1alpha1.PlaybookRun{}
	Expect(c.Get(ctx, requestFor(run), current)).To(Succeed())
	return current
}

func listJobs(ctx context.Context, c client.Client) []batchv1.Job {
	jobs := &batchv1.JobList{}
	Expect(c.List(ctx, jobs, client.InNamespace("default"))).To(Succeed())
	return jobs.Items
}

var _ = Describe("PlaybookRun Controller", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("When the PlaybookRun does not exist", func() {
		It("should return without error or requeue", func() {
			c := newFakeClient(nil)
			reconciler, _ := newTestReconciler(c)

			result, err := reconciler.Reconcile(ctx, reconcile.Request{
				NamespacedName: requestFor(newTestRun("missing")),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(listJobs(ctx, c)).To(BeEmpty())
		})
	})

	Context("When reconciling a new PlaybookRun", func() {
		It("should create exactly one Job owned by the PlaybookRun", func() {
			run := newTestRun("web")
			c := newFakeClient(nil, run)
			reconciler, recorder := newTestReconciler(c)
			createdBefore := testutil.ToFloat64(jobsCreatedTotal)

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(testPollInterval))

			By("Verifying the Job")
			jobs := listJobs(ctx, c)
			Expect(jobs).To(HaveLen(1))
			job := jobs[0]
			Expect(job.Name).To(Equal("web-job"))
			owner := metav1.GetControllerOf(&job)
			Expect(owner).NotTo(BeNil())
			Expect(owner.Kind).To(Equal("PlaybookRun"))
			Expect(owner.UID).To(Equal(run.UID))
			Expect(*owner.BlockOwnerDeletion).To(BeTrue())

			By("Verifying the status")
			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunPending))
			Expect(current.Status.RunCount).To(Equal(int32(1)))
			Expect(current.Status.JobName).To(Equal("web-job"))
			Expect(current.Status.ObservedGeneration).To(Equal(int64(1)))
			Expect(meta.IsStatusConditionTrue(current.Status.Conditions, string(ConditionJobCreated))).To(BeTrue())

			Expect(recorder.Events).To(Receive(Equal("Normal JobCreated Created Job web-job")))
			Expect(testutil.ToFloat64(jobsCreatedTotal)).To(Equal(createdBefore + 1))
		})

		It("should create the Job only once across repeated reconciles", func() {
			run := newTestRun("repeat")
			var creates atomic.Int32
			c := newFakeClient(countingCreates(&creates), run)
			reconciler, _ := newTestReconciler(c)

			for range 3 {
				_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(creates.Load()).To(Equal(int32(1)))
			Expect(listJobs(ctx, c)).To(HaveLen(1))
			Expect(getRun(ctx, c, run).Status.RunCount).To(Equal(int32(1)))
		})
	})

	Context("When the spec is invalid", func() {
		It("should fail the run without creating a Job and not retry", func() {
			run := newTestRun("invalid")
			run.Spec.Repo = ""
			c := newFakeClient(nil, run)
			reconciler, recorder := newTestReconciler(c)

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeTrue())
			Expect(result).To(Equal(ctrl.Result{}))

			Expect(listJobs(ctx, c)).To(BeEmpty())

			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunFailed))
			Expect(current.Status.RunCount).To(BeZero())
			Expect(current.Status.Message).To(ContainSubstring("spec.repo is required"))
			cond := meta.FindStatusCondition(current.Status.Conditions, string(ConditionSucceeded))
			Expect(cond).NotTo(BeNil())
			Expect(cond.Reason).To(Equal(string(ReasonInvalidSpec)))

			Expect(recorder.Events).To(Receive(HavePrefix("Warning InvalidSpec")))
		})
	})

	Context("When the Job exists", func() {
		It("should mirror a running Job and requeue", func() {
			run := newTestRun("running")
			run.Status.RunCount = 1
			run.Status.JobName = "running-job"
			run.Status.Phase = playbookrunv1alpha1.PlaybookRunPending
			job := newTestJob(run)
			started := metav1.NewTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
			job.Status.StartTime = &started
			job.Status.Active = 1
			c := newFakeClient(nil, run, job)
			reconciler, _ := newTestReconciler(c)

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(testPollInterval))

			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunRunning))
			Expect(current.Status.StartTime).NotTo(BeNil())
			Expect(current.Status.StartTime.Time.Equal(started.Time)).To(BeTrue())
			Expect(meta.IsStatusConditionTrue(current.Status.Conditions, string(ConditionJobRunning))).To(BeTrue())
		})

		It("should propagate a successful Job without touching it", func() {
			run := newTestRun("done")
			run.Status.RunCount = 1
			run.Status.Phase = playbookrunv1alpha1.PlaybookRunRunning
			job := newTestJob(run)
			finished := metav1.NewTime(time.Date(2025, 1, 2, 3, 14, 5, 0, time.UTC))
			job.Status.Succeeded = 1
			job.Status.CompletionTime = &finished
			job.Status.Conditions = []batchv1.JobCondition{
				{Type: batchv1.JobComplete, Status: corev1.ConditionTrue},
			}
			c := newFakeClient(nil, run, job)
			reconciler, recorder := newTestReconciler(c)

			before := &batchv1.Job{}
			Expect(c.Get(ctx, client.ObjectKeyFromObject(job), before)).To(Succeed())

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))

			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunSucceeded))
			Expect(current.Status.CompletionTime).NotTo(BeNil())
			Expect(current.Status.CompletionTime.Time.Equal(finished.Time)).To(BeTrue())
			Expect(meta.IsStatusConditionTrue(current.Status.Conditions, string(ConditionSucceeded))).To(BeTrue())
			Expect(meta.IsStatusConditionTrue(current.Status.Conditions, string(ConditionCompleted))).To(BeTrue())

			after := &batchv1.Job{}
			Expect(c.Get(ctx, client.ObjectKeyFromObject(job), after)).To(Succeed())
			Expect(after.ResourceVersion).To(Equal(before.ResourceVersion))

			Expect(recorder.Events).To(Receive(Equal("Normal RunSucceeded Job done-job completed successfully")))
		})

		It("should propagate a failed Job with its detail", func() {
			run := newTestRun("broken")
			run.Status.RunCount = 1
			run.Status.Phase = playbookrunv1alpha1.PlaybookRunRunning
			job := newTestJob(run)
			job.Status.Failed = 1
			job.Status.Conditions = []batchv1.JobCondition{
				{
					Type:               batchv1.JobFailed,
					Status:             corev1.ConditionTrue,
					Reason:             "BackoffLimitExceeded",
					Message:            "Job has reached the specified backoff limit",
					LastTransitionTime: metav1.NewTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
				},
			}
			c := newFakeClient(nil, run, job)
			reconciler, _ := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())

			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunFailed))
			Expect(current.Status.Message).To(Equal("BackoffLimitExceeded: Job has reached the specified backoff limit"))
			Expect(current.Status.CompletionTime).NotTo(BeNil())
			cond := meta.FindStatusCondition(current.Status.Conditions, string(ConditionSucceeded))
			Expect(cond).NotTo(BeNil())
			Expect(cond.Status).To(Equal(metav1.ConditionFalse))
			Expect(cond.Reason).To(Equal(string(ReasonJobFailed)))
		})

		It("should adopt a Job whose creation was never recorded", func() {
			run := newTestRun("adopt")
			job := newTestJob(run)
			var creates atomic.Int32
			c := newFakeClient(countingCreates(&creates), run, job)
			reconciler, _ := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())

			Expect(creates.Load()).To(BeZero())
			current := getRun(ctx, c, run)
			Expect(current.Status.RunCount).To(Equal(int32(1)))
			Expect(current.Status.JobName).To(Equal("adopt-job"))
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunPending))
		})

		It("should report drift without mutating the Job", func() {
			run := newTestRun("drift")
			run.Status.RunCount = 1
			job := newTestJob(run)
			job.Annotations[controller.AnnotationKeySpecHash] = "stale"
			c := newFakeClient(nil, run, job)
			reconciler, _ := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())

			current := getRun(ctx, c, run)
			cond := meta.FindStatusCondition(current.Status.Conditions, string(ConditionSpecDrift))
			Expect(cond).NotTo(BeNil())
			Expect(cond.Reason).To(Equal(string(ReasonSpecHashMismatch)))

			live := &batchv1.Job{}
			Expect(c.Get(ctx, client.ObjectKeyFromObject(job), live)).To(Succeed())
			Expect(controller.GetSpecHash(live)).To(Equal("stale"))
		})

		It("should refuse a Job controlled by another PlaybookRun", func() {
			run := newTestRun("reused")
			previous := newTestRun("reused")
			previous.UID = "previous-uid"
			job := newTestJob(previous)
			c := newFakeClient(nil, run, job)
			reconciler, _ := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).To(MatchError(ContainSubstring("not controlled by this PlaybookRun")))
			Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeFalse())
			Expect(getRun(ctx, c, run).Status.RunCount).To(BeZero())
		})
	})

	Context("When the API server rejects the rendered Job", func() {
		It("should fail the run instead of retrying forever", func() {
			run := newTestRun("rejected")
			var creates atomic.Int32
			c := newFakeClient(&interceptor.Funcs{
				Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
					if _, ok := obj.(*batchv1.Job); ok {
						creates.Add(1)
						return apierrors.NewInvalid(schema.GroupKind{Group: "batch", Kind: "Job"}, obj.GetName(),
							field.ErrorList{field.Invalid(field.NewPath("spec", "ttlSecondsAfterFinished"),
								int32(-1), "must be greater than or equal to 0")})
					}
					return c.Create(ctx, obj, opts...)
				},
			}, run)
			reconciler, recorder := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeTrue())
			Expect(apierrors.IsInvalid(err)).To(BeTrue())

			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunFailed))
			Expect(current.Status.RunCount).To(BeZero())
			Expect(current.Status.CompletionTime).NotTo(BeNil())
			cond := meta.FindStatusCondition(current.Status.Conditions, string(ConditionSucceeded))
			Expect(cond).NotTo(BeNil())
			Expect(cond.Reason).To(Equal(string(ReasonJobRejected)))
			Expect(recorder.Events).To(Receive(HavePrefix("Warning JobRejected")))

			By("Leaving the failed run alone afterwards")
			_, err = reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(creates.Load()).To(Equal(int32(1)))
		})
	})

	Context("When the status write conflicts", func() {
		It("should announce the outcome only once it is persisted", func() {
			run := newTestRun("conflict")
			run.Status.RunCount = 1
			run.Status.Phase = playbookrunv1alpha1.PlaybookRunRunning
			job := newTestJob(run)
			job.Status.Succeeded = 1
			job.Status.Conditions = []batchv1.JobCondition{
				{Type: batchv1.JobComplete, Status: corev1.ConditionTrue},
			}
			var writes atomic.Int32
			c := newFakeClient(&interceptor.Funcs{
				SubResourceUpdate: func(ctx context.Context, c client.Client, subResourceName string,
					obj client.Object, opts ...client.SubResourceUpdateOption) error {
					if writes.Add(1) == 1 {
						return apierrors.NewConflict(playbookRunResource, obj.GetName(),
							errors.New("the object has been modified"))
					}
					return c.SubResource(subResourceName).Update(ctx, obj, opts...)
				},
			}, run, job)
			reconciler, recorder := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(apierrors.IsConflict(err)).To(BeTrue())
			Expect(recorder.Events).NotTo(Receive())

			_, err = reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(recorder.Events).To(Receive(Equal("Normal RunSucceeded Job conflict-job completed successfully")))
			Expect(recorder.Events).NotTo(Receive())
			Expect(getRun(ctx, c, run).Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunSucceeded))
		})
	})

	Context("When the Job disappears before completion", func() {
		It("should fail the run and never recreate the Job", func() {
			run := newTestRun("vanished")
			run.Status.RunCount = 1
			run.Status.JobName = "vanished-job"
			run.Status.Phase = playbookrunv1alpha1.PlaybookRunRunning
			var creates atomic.Int32
			c := newFakeClient(countingCreates(&creates), run)
			reconciler, recorder := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())

			Expect(creates.Load()).To(BeZero())
			current := getRun(ctx, c, run)
			Expect(current.Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunFailed))
			Expect(current.Status.RunCount).To(Equal(int32(1)))
			cond := meta.FindStatusCondition(current.Status.Conditions, string(ConditionSucceeded))
			Expect(cond).NotTo(BeNil())
			Expect(cond.Reason).To(Equal(string(ReasonJobNotFound)))
			Expect(recorder.Events).To(Receive(HavePrefix("Warning JobNotFound")))
		})
	})

	Context("When the PlaybookRun needs no further work", func() {
		It("should leave terminal runs alone", func() {
			run := newTestRun("finished")
			run.Status.RunCount = 1
			run.Status.Phase = playbookrunv1alpha1.PlaybookRunSucceeded
			var creates atomic.Int32
			c := newFakeClient(countingCreates(&creates), run)
			reconciler, _ := newTestReconciler(c)

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(ctrl.Result{}))
			Expect(creates.Load()).To(BeZero())
			Expect(getRun(ctx, c, run).Status.Phase).To(Equal(playbookrunv1alpha1.PlaybookRunSucceeded))
		})

		It("should leave runs that are being deleted alone", func() {
			run := newTestRun("deleting")
			now := metav1.Now()
			run.DeletionTimestamp = &now
			run.Finalizers = []string{"example.com/hold"}
			var creates atomic.Int32
			c := newFakeClient(countingCreates(&creates), run)
			reconciler, _ := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(creates.Load()).To(BeZero())
		})
	})

	Context("When racing other writers", func() {
		It("should treat a lost creation race as success", func() {
			run := newTestRun("race")
			funcs := &interceptor.Funcs{
				Get: func(ctx context.Context, c client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
					if _, ok := obj.(*batchv1.Job); ok {
						return apierrors.NewNotFound(jobResource, key.Name)
					}
					return c.Get(ctx, key, obj, opts...)
				},
				Create: func(_ context.Context, _ client.WithWatch, obj client.Object, _ ...client.CreateOption) error {
					return apierrors.NewAlreadyExists(jobResource, obj.GetName())
				},
			}
			c := newFakeClient(funcs, run)
			reconciler, _ := newTestReconciler(c)

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Requeue).To(BeTrue())
			Expect(getRun(ctx, c, run).Status.RunCount).To(BeZero())
		})

		It("should create at most one Job when reconciled concurrently", func() {
			run := newTestRun("concurrent")
			c := newFakeClient(nil, run)

			const workers = 4
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					reconciler, _ := newTestReconciler(c)
					_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					Expect(apierrors.IsConflict(err)).To(BeTrue(), "unexpected error: %v", err)
				}
			}
			Expect(listJobs(ctx, c)).To(HaveLen(1))

			By("Converging after the losers' status writes")
			reconciler, _ := newTestReconciler(c)
			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(listJobs(ctx, c)).To(HaveLen(1))
			Expect(getRun(ctx, c, run).Status.RunCount).To(Equal(int32(1)))
		})
	})

	Context("When the API server misbehaves", func() {
		It("should return transient create errors for retry", func() {
			run := newTestRun("flaky")
			funcs := &interceptor.Funcs{
				Create: func(_ context.Context, _ client.WithWatch, _ client.Object, _ ...client.CreateOption) error {
					return apierrors.NewInternalError(errors.New("etcd unavailable"))
				},
			}
			c := newFakeClient(funcs, run)
			reconciler, _ := newTestReconciler(c)

			_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeFalse())

			current := getRun(ctx, c, run)
			Expect(current.Status.RunCount).To(BeZero())
			Expect(current.Status.Phase).To(BeEmpty())
		})

		It("should requeue when the reconcile deadline passes", func() {
			run := newTestRun("slow")
			funcs := &interceptor.Funcs{
				Get: func(ctx context.Context, c client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
					if _, ok := obj.(*batchv1.Job); ok {
						<-ctx.Done()
						return ctx.Err()
					}
					return c.Get(ctx, key, obj, opts...)
				},
			}
			c := newFakeClient(funcs, run)
			reconciler, _ := newTestReconciler(c)
			reconciler.Options.ReconcileTimeout = 20 * time.Millisecond

			result, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: requestFor(run)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Requeue).To(BeTrue())
		})
	})
})
