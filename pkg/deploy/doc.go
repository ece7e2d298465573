// Package deploy runs a whole deploy, plan or remove of one project.
//
// A run validates the declaration, evaluates policies, uploads local code to
// object storage when the function uses obs code, reconciles the function and
// then each declared trigger. The first fatal error stops the run; changes
// made before it stay applied and are reported in the returned engine.Run.
package deploy
